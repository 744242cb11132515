package spamc

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/teamwork/utils/mathutil"
)

// Report contains the parsed results of the Report command.
type Report struct {
	Intro string
	Table []struct {
		Points      float64
		Rule        string
		Description string
	}
}

// String formats the report like SpamAssassin.
func (r Report) String() string {
	table := " pts rule name              description\n"
	table += "---- ---------------------- --------------------------------------------------\n"

	for _, t := range r.Table {
		leadingSpace := ""
		if t.Points >= 0 && !mathutil.IsSignedZero(t.Points) {
			leadingSpace = " "
		}

		line := fmt.Sprintf("%v%.1f %v", leadingSpace, t.Points, t.Rule)
		nspaces := 27 - len(line)
		spaces := " "
		if nspaces > 0 {
			spaces += strings.Repeat(" ", nspaces)
		}
		line += spaces + t.Description + "\n"
		table += line
	}

	return r.Intro + "\n\n" + table
}

var reTableLine = regexp.MustCompile(`(-?[0-9.]+)\s+([A-Z0-9_]+)\s+(.+)`)

// parseReport decodes a REPORT body; example:
//
//	Spam detection software, running on the system "d311d8df23f8",
//	has NOT identified this incoming email as spam.  [...]
//
//	Content analysis details:   (1.6 points, 5.0 required)
//
//	 pts rule name              description
//	---- ---------------------- --------------------------------------------------
//	 0.4 INVALID_DATE           Invalid Date: header (not RFC 2822)
//	-0.0 NO_RELAYS              Informational: message was not relayed via SMTP
//	 1.2 MISSING_HEADERS        Missing To: header
func parseReport(body []byte) Report {
	report := Report{}
	table := false

	for _, line := range strings.Split(string(body), "\n") {
		line = strings.TrimRight(line, "\r")

		switch {
		case !table && strings.HasPrefix(line, " pts rule name"):
			table = true

		case table && strings.HasPrefix(line, "---- -"):
			continue

		case !table:
			report.Intro += line + "\n"

		case table:
			s := reTableLine.FindAllStringSubmatch(line, -1)
			if len(s) != 0 {
				points, err := strconv.ParseFloat(s[0][1], 64)
				if err != nil {
					continue
				}

				report.Table = append(report.Table, struct {
					Points      float64
					Rule        string
					Description string
				}{
					points, s[0][2], s[0][3],
				})
			} else {
				// Continuation of the previous rule's description.
				last := len(report.Table) - 1
				if last >= 0 {
					line = strings.TrimSpace(line)
					if line != "" {
						report.Table[last].Description += "\n                            " + line
					}
				}
			}
		}
	}

	report.Intro = strings.TrimSpace(report.Intro)
	return report
}

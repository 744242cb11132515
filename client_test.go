package spamc

import (
	"context"
	"fmt"
	"reflect"
	"strings"
	"testing"

	"github.com/teamwork/test"

	"github.com/spamwatch/spamc/fakeconn"
)

func newTestClient(canned string, cfg *Config) (*Client, fakeconn.Conn) {
	conn := fakeconn.New()
	conn.ReadFrom.WriteString(canned)
	testConnHook = conn
	if cfg == nil {
		cfg = NewConfig("127.0.0.1:783")
	}
	return New(cfg), conn
}

func TestCheck(t *testing.T) {
	cases := []struct {
		in      string
		want    *CheckResponse
		wantErr string
	}{
		{
			"SPAMD/1.1 0 EX_OK\r\nSpam: yes; 6.42 / 5.0\r\n\r\n",
			&CheckResponse{
				IsSpam:    true,
				Score:     6.42,
				BaseScore: 5,
			},
			"",
		},
		{
			"SPAMD/1.1 0 EX_OK\r\nSpam: no; -2.0 / 5.0\r\n\r\n",
			&CheckResponse{
				IsSpam:    false,
				Score:     -2.0,
				BaseScore: 5,
			},
			"",
		},
		{
			"SPAMD/1.1 0 EX_OK\r\n\r\n",
			nil,
			"missing the Spam header",
		},
		{
			"garbage\r\n",
			nil,
			"unrecognised response",
		},
	}

	for i, tc := range cases {
		t.Run(fmt.Sprintf("%v", i), func(t *testing.T) {
			c, conn := newTestClient(tc.in, nil)
			defer func() { testConnHook = nil }()

			out, err := c.Check(context.Background(), strings.NewReader("A message"), nil)
			if !test.ErrorContains(err, tc.wantErr) {
				t.Errorf("wrong error\nout:  %#v\nwant: %#v\n", err, tc.wantErr)
			}
			if !reflect.DeepEqual(out, tc.want) {
				t.Errorf("\nout:  %#v\nwant: %#v\n", out, tc.want)
			}

			if tc.wantErr == "" {
				wantFrame := "CHECK SPAMC/1.5\r\n" +
					"Content-length: 11\r\n" +
					"\r\n" +
					"A message\r\n"
				if got := conn.Written.String(); got != wantFrame {
					t.Errorf("\nwrote: %#v\nwant:  %#v\n", got, wantFrame)
				}
			}
		})
	}
}

func TestSymbols(t *testing.T) {
	in := "SPAMD/1.1 0 EX_OK\r\n" +
		"Content-length: 50\r\n" +
		"Spam: False ; 1.6 / 5.0\r\n" +
		"\r\n" +
		"INVALID_DATE,MISSING_HEADERS,NO_RECEIVED,NO_RELAYS"
	want := &CheckResponse{
		IsSpam:    false,
		Score:     1.6,
		BaseScore: 5.0,
		Symbols:   []string{"INVALID_DATE", "MISSING_HEADERS", "NO_RECEIVED", "NO_RELAYS"},
	}

	c, _ := newTestClient(in, nil)
	defer func() { testConnHook = nil }()

	out, err := c.Symbols(context.Background(), strings.NewReader("A message"), nil)
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(out, want) {
		t.Errorf("\nout:  %#v\nwant: %#v\n", out, want)
	}
}

func TestSymbolsShort(t *testing.T) {
	in := "SPAMD/1.1 0 EX_OK\r\n" +
		"Content-length: 13\r\n" +
		"Spam: True ; 15.0 / 5.0\r\n" +
		"\r\n" +
		"RULE_A,RULE_B"

	c, _ := newTestClient(in, nil)
	defer func() { testConnHook = nil }()

	out, err := c.Symbols(context.Background(), strings.NewReader("A message"), nil)
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(out.Symbols, []string{"RULE_A", "RULE_B"}) {
		t.Errorf("wrong symbols: %#v", out.Symbols)
	}
}

func TestProcess(t *testing.T) {
	rewritten := "Subject: Hello\r\nX-Spam-Status: No\r\n\r\nthe body\r\n"
	in := "SPAMD/1.1 0 EX_OK\r\n" +
		"Spam: False ; 1.6 / 5.0\r\n" +
		fmt.Sprintf("Content-length: %v\r\n", len(rewritten)) +
		"\r\n" +
		rewritten

	c, _ := newTestClient(in, nil)
	defer func() { testConnHook = nil }()

	out, err := c.Process(context.Background(), strings.NewReader("A message"), nil)
	if err != nil {
		t.Fatal(err)
	}
	if string(out.Message) != rewritten {
		t.Errorf("\nout:  %#v\nwant: %#v\n", string(out.Message), rewritten)
	}
	if out.IsSpam || out.Score != 1.6 {
		t.Errorf("wrong spam fields: %#v", out)
	}
}

func TestTell(t *testing.T) {
	cases := []struct {
		in      string
		headers Header
		want    *TellResponse
		wantErr string
	}{
		{
			"SPAMD/1.1 0 EX_OK\r\nDidSet: local\r\n\r\n",
			Header{}.Set("Message-class", "spam").Set("Set", "local"),
			&TellResponse{DidSet: []string{"local"}},
			"",
		},
		{
			"SPAMD/1.1 0 EX_OK\r\nDidRemove: local,remote\r\n\r\n",
			Header{}.Set("Remove", "local,remote"),
			&TellResponse{DidRemove: []string{"local", "remote"}},
			"",
		},
		{
			"SPAMD/1.1 69 Tell commands are not enabled\r\n",
			Header{}.Set("Message-class", "spam").Set("Set", "local"),
			nil,
			"--allow-tell",
		},
	}

	for i, tc := range cases {
		t.Run(fmt.Sprintf("%v", i), func(t *testing.T) {
			c, _ := newTestClient(tc.in, nil)
			defer func() { testConnHook = nil }()

			out, err := c.Tell(context.Background(), strings.NewReader("A message"), tc.headers)
			if !test.ErrorContains(err, tc.wantErr) {
				t.Errorf("wrong error\nout:  %#v\nwant: %#v\n", err, tc.wantErr)
			}
			if !reflect.DeepEqual(out, tc.want) {
				t.Errorf("\nout:  %#v\nwant: %#v\n", out, tc.want)
			}
		})
	}
}

func TestLearn(t *testing.T) {
	c, conn := newTestClient("SPAMD/1.1 0 EX_OK\r\nDidSet: local\r\n\r\n", nil)
	defer func() { testConnHook = nil }()

	_, err := c.Learn(context.Background(), LearnSpam, strings.NewReader("A message"), nil)
	if err != nil {
		t.Fatal(err)
	}

	got := conn.Written.String()
	if !strings.Contains(got, "Message-class: spam\r\n") {
		t.Errorf("no Message-class header: %#v", got)
	}
	if !strings.Contains(got, "Set: local\r\n") {
		t.Errorf("no Set header: %#v", got)
	}

	_, err = c.Learn(context.Background(), "frobnicate", strings.NewReader("x"), nil)
	if !test.ErrorContains(err, "unknown learn type") {
		t.Errorf("wrong error: %v", err)
	}
}

func TestPing(t *testing.T) {
	c, conn := newTestClient("SPAMD/1.5 0 PONG\r\n", nil)
	defer func() { testConnHook = nil }()

	if err := c.Ping(context.Background()); err != nil {
		t.Fatal(err)
	}
	if got := conn.Written.String(); got != "PING SPAMC/1.5\r\n\r\n" {
		t.Errorf("wrote: %#v", got)
	}
}

func TestSkip(t *testing.T) {
	c, conn := newTestClient("", nil)
	defer func() { testConnHook = nil }()

	if err := c.Skip(context.Background()); err != nil {
		t.Fatal(err)
	}
	if got := conn.Written.String(); got != "SKIP SPAMC/1.5\r\n\r\n" {
		t.Errorf("wrote: %#v", got)
	}
}

func TestDefaultUser(t *testing.T) {
	cfg := NewConfig("127.0.0.1:783").WithUser("bob")
	c, conn := newTestClient("SPAMD/1.1 0 EX_OK\r\nSpam: no; 0.0 / 5.0\r\n\r\n", cfg)
	defer func() { testConnHook = nil }()

	_, err := c.Check(context.Background(), strings.NewReader("A message"), nil)
	if err != nil {
		t.Fatal(err)
	}
	if got := conn.Written.String(); !strings.Contains(got, "User: bob\r\n") {
		t.Errorf("no User header: %#v", got)
	}
}

func TestCompressedRequest(t *testing.T) {
	cfg := NewConfig("127.0.0.1:783").WithCompression(true)
	c, conn := newTestClient("SPAMD/1.1 0 EX_OK\r\nSpam: no; 0.0 / 5.0\r\n\r\n", cfg)
	defer func() { testConnHook = nil }()

	_, err := c.Check(context.Background(), strings.NewReader("A message"), nil)
	if err != nil {
		t.Fatal(err)
	}

	got := conn.Written.String()
	if !strings.Contains(got, "Compress: zlib\r\n") {
		t.Errorf("no Compress header: %#v", got)
	}

	i := strings.Index(got, "\r\n\r\n")
	if i < 0 {
		t.Fatalf("no blank line: %#v", got)
	}
	plain, err := decompressBody([]byte(got[i+4:]))
	if err != nil {
		t.Fatal(err)
	}
	if string(plain) != "A message\r\n" {
		t.Errorf("wrong body: %#v", string(plain))
	}

	want := fmt.Sprintf("Content-length: %v\r\n", len(got)-i-4)
	if !strings.Contains(got, want) {
		t.Errorf("header block %#v does not declare %#v", got[:i], want)
	}
}

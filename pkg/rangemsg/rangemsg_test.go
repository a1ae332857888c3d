package rangemsg

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/iziplay/isbn-api/pkg/isbn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/multierr"
)

func TestParseFile(t *testing.T) {
	msg, err := ParseFile("testdata/RangeMessage.xml")
	require.NoError(t, err)

	assert.Equal(t, "International ISBN Agency", msg.Metadata.Source)
	assert.Equal(t, "4b4f0e2a-7b3d-4c5e-9c6a-1f1d2e3a4b5c", msg.Metadata.Serial)
	assert.Equal(t, 2026, msg.Metadata.Date.Year())
	assert.Equal(t, time.October, msg.Metadata.Date.Month())

	require.Len(t, msg.Prefixes, 2)
	assert.Equal(t, "978", msg.Prefixes[0].Prefix)
	assert.Equal(t, []isbn.Rule{{Low: 0, High: 5, Length: 1}, {Low: 600, High: 649, Length: 3}}, msg.Prefixes[0].Rules)
	assert.Equal(t, []isbn.Rule{{Low: 10, High: 12, Length: 2}}, msg.Prefixes[1].Rules)

	require.Len(t, msg.Groups, 4)
	prefixes := make([]string, len(msg.Groups))
	for i, g := range msg.Groups {
		prefixes[i] = g.Prefix
	}
	assert.Equal(t, []string{"9780", "9783", "97899937", "97910"}, prefixes)

	english := msg.Groups[0]
	assert.Equal(t, "English language", english.Agency)
	require.Len(t, english.Rules, 10)
	assert.Equal(t, isbn.Rule{Low: 0, High: 19, Length: 2}, english.Rules[0])
	assert.Equal(t, isbn.Rule{Low: 229, High: 647, Length: 3}, english.Rules[3])
	assert.Equal(t, isbn.Rule{Low: 6480000, High: 6489999, Length: 7}, english.Rules[4])

	// zero length rules are unassigned and dropped with a warning
	assert.Len(t, msg.Groups[2].Rules, 2)
	warnings := multierr.Errors(msg.Warnings)
	assert.Len(t, warnings, 2)
}

func TestMessageTable(t *testing.T) {
	msg, err := ParseFile("testdata/RangeMessage.xml")
	require.NoError(t, err)

	table, err := msg.Table()
	require.NoError(t, err)
	assert.Equal(t, 4, table.Len())
	assert.Equal(t, msg.Metadata.Serial, table.Metadata().Serial)

	for in, want := range map[string]string{
		"9780596528126": "978-0-596-52812-6",
		"0201616224":    "",
		"020161622X":    "978-0-201-61622-4",
		"9783161484100": "978-3-16-148410-0",
		"9791090636071": "979-10-90636-07-1",
	} {
		got, err := table.Hyphenate(in)
		if want == "" {
			assert.Error(t, err, in)
			continue
		}
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}
}

func TestParseErrors(t *testing.T) {
	cases := map[string]string{
		"not xml":        "this is not xml <",
		"wrong root":     `<Other/>`,
		"no groups":      `<ISBNRangeMessage><MessageSource>x</MessageSource></ISBNRangeMessage>`,
		"bad length":     `<ISBNRangeMessage><RegistrationGroups><Group><Prefix>978-0</Prefix><Rules><Rule><Range>0000000-1999999</Range><Length>two</Length></Rule></Rules></Group></RegistrationGroups></ISBNRangeMessage>`,
		"bad range":      `<ISBNRangeMessage><RegistrationGroups><Group><Prefix>978-0</Prefix><Rules><Rule><Range>0000000</Range><Length>2</Length></Rule></Rules></Group></RegistrationGroups></ISBNRangeMessage>`,
		"short bound":    `<ISBNRangeMessage><RegistrationGroups><Group><Prefix>978-0</Prefix><Rules><Rule><Range>0-1</Range><Length>2</Length></Rule></Rules></Group></RegistrationGroups></ISBNRangeMessage>`,
		"missing length": `<ISBNRangeMessage><RegistrationGroups><Group><Prefix>978-0</Prefix><Rules><Rule><Range>0000000-1999999</Range></Rule></Rules></Group></RegistrationGroups></ISBNRangeMessage>`,
		"no prefix":      `<ISBNRangeMessage><RegistrationGroups><Group><Agency>x</Agency></Group></RegistrationGroups></ISBNRangeMessage>`,
	}
	for name, doc := range cases {
		_, err := Parse(strings.NewReader(doc))
		assert.Error(t, err, name)
	}
}

func TestParseBadDateIsWarning(t *testing.T) {
	msg, err := Parse(strings.NewReader(`<ISBNRangeMessage><MessageDate>yesterday</MessageDate><RegistrationGroups/></ISBNRangeMessage>`))
	require.NoError(t, err)
	assert.True(t, msg.Metadata.Date.IsZero())
	assert.Error(t, msg.Warnings)
	assert.Empty(t, msg.Groups)
}

func TestFetch(t *testing.T) {
	data, err := os.ReadFile("testdata/RangeMessage.xml")
	require.NoError(t, err)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/export_rangemessage.xml" {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "application/xml")
		w.Write(data)
	}))
	defer srv.Close()

	msg, err := Fetch(context.Background(), srv.URL+"/export_rangemessage.xml")
	require.NoError(t, err)
	assert.Len(t, msg.Groups, 4)

	_, err = Fetch(context.Background(), srv.URL+"/missing")
	assert.ErrorContains(t, err, "unexpected status code: 404")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = Fetch(ctx, srv.URL+"/export_rangemessage.xml")
	assert.Error(t, err)
}

package isbn

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalize(t *testing.T) {
	assert.Equal(t, "0596528124", Normalize("0-596-52812-4"))
	assert.Equal(t, "020161622X", Normalize("isbn 0 201 61622 x"))
	assert.Equal(t, "9780596528126", Normalize(" 978-0-596-52812-6\n"))
	assert.Equal(t, "", Normalize("abc-def"))
	assert.Equal(t, Normalize("0596528124"), Normalize("0-596-52812-4"))
}

func TestValid(t *testing.T) {
	assert.True(t, Valid("0596528124"))
	assert.True(t, Valid("0-596-52812-4"))
	assert.True(t, Valid("9780596528126"))
	assert.True(t, Valid("978-0-596-52812-6"))
	assert.True(t, Valid("020161622X"))
	assert.True(t, Valid("0-201-61622-x"))
	assert.True(t, Valid("9791090636071"))

	assert.False(t, Valid("0596528123"))
	assert.False(t, Valid("9780596528127"))
	assert.False(t, Valid(""))
	assert.False(t, Valid("123"))
	assert.False(t, Valid("05965281245"))
	// X is only allowed as the ISBN-10 check character
	assert.False(t, Valid("X596528124"))
	assert.False(t, Valid("978059652812X"))
}

func TestValidIgnoresNoise(t *testing.T) {
	for _, s := range []string{"0596528124", "020161622X", "9780596528126", "0596528123"} {
		noisy := []string{
			s[:1] + "-" + s[1:4] + "-" + s[4:],
			" " + s + " ",
			s[:3] + " " + s[3:],
		}
		for _, n := range noisy {
			assert.Equal(t, Valid(s), Valid(n), n)
		}
	}
	assert.Equal(t, Valid("020161622X"), Valid("020161622x"))
}

func TestKindOf(t *testing.T) {
	assert.Equal(t, KindISBN10, KindOf("0-596-52812-4"))
	assert.Equal(t, KindISBN13, KindOf("9780596528126"))
	assert.Equal(t, KindInvalid, KindOf("0596528123"))
	assert.Equal(t, KindInvalid, KindOf("hello"))
}

func TestTo13(t *testing.T) {
	check := func(in, want string) {
		got, ok := To13(in)
		assert.True(t, ok, in)
		assert.Equal(t, want, got, in)
	}
	check("0306406152", "9780306406157")
	check("0140449116", "9780140449112")
	check("020161622X", "9780201616224")
	check("0-596-52812-4", "9780596528126")
	check("9780596528126", "9780596528126")
	check("979-10-90636-07-1", "9791090636071")

	for _, in := range []string{"", "123", "abcdefghij", "0596528123"} {
		got, ok := To13(in)
		assert.False(t, ok, in)
		assert.Equal(t, "", got, in)
	}
}

func TestTo10(t *testing.T) {
	check := func(in, want string) {
		got, ok := To10(in)
		assert.True(t, ok, in)
		assert.Equal(t, want, got, in)
	}
	check("9780306406157", "0306406152")
	check("9780140449112", "0140449116")
	check("9780201616224", "020161622X")
	check("978-0-596-52812-6", "0596528124")
	check("0596528124", "0596528124")

	for _, in := range []string{"", "123", "9790000000000", "978abcdefghi", "9791090636071", "9780596528127"} {
		got, ok := To10(in)
		assert.False(t, ok, in)
		assert.Equal(t, "", got, in)
	}
}

func TestConvert(t *testing.T) {
	got, ok := Convert("0596528124", 13)
	assert.True(t, ok)
	assert.Equal(t, "9780596528126", got)

	got, ok = Convert("9780596528126", 10)
	assert.True(t, ok)
	assert.Equal(t, "0596528124", got)

	_, ok = Convert("0596528124", 12)
	assert.False(t, ok)
	_, ok = Convert("0596528123", 13)
	assert.False(t, ok)
}

func TestRoundTrip(t *testing.T) {
	for _, a := range []string{"0306406152", "0140449116", "020161622X", "0596528124", "0000000000"} {
		b, ok := Convert(a, 13)
		assert.True(t, ok, a)
		assert.True(t, Valid(b), b)
		back, ok := Convert(b, 10)
		assert.True(t, ok, b)
		assert.Equal(t, a, back)
	}

	for _, b := range []string{"9780306406157", "9780201616224", "9780596528126"} {
		a, ok := Convert(b, 10)
		assert.True(t, ok, b)
		assert.True(t, Valid(a), a)
		back, ok := Convert(a, 13)
		assert.True(t, ok, a)
		assert.Equal(t, b, back)
	}
}

func TestConvertIdempotent(t *testing.T) {
	got, _ := Convert("020161622X", 10)
	assert.Equal(t, "020161622X", got)
	got, _ = Convert("9791090636071", 13)
	assert.Equal(t, "9791090636071", got)
}

package jwcodec

import (
	"encoding/base64"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestEncodeMatchesBase64(t *testing.T) {
	// for inputs without interior zero bytes the transform is plain
	// base64, which is what the backend's decoder expects
	testCases := []string{
		"",
		"a",
		"ab",
		"abc",
		"abcd",
		"2023010101",
		"p@ssw0rd!",
		"你好",
		"综合教务系统",
		"mixed密码123",
	}

	for _, text := range testCases {
		require.Equal(
			t,
			base64.StdEncoding.EncodeToString([]byte(text)),
			Encode(text),
			"input: %q", text,
		)
	}
}

func TestRoundTrip(t *testing.T) {
	testCases := []string{
		"",
		"x",
		"xy",
		"xyz",
		"xyzw",
		"学号123456",
		"ααβ",
	}

	for _, text := range testCases {
		decoded, err := Decode(Encode(text))
		require.NoError(t, err, "input: %q", text)
		require.Equal(t, []byte(text), decoded, "input: %q", text)
	}
}

func TestZeroBytePaddingQuirk(t *testing.T) {
	// the legacy script pads on zero byte *values*, so a literal NUL
	// truncates the group exactly like end-of-input does. credentials
	// never contain NUL, but the quirk is the contract.
	require.Equal(t, Encode("a"), Encode("a\x00\x00"))
	require.Equal(t, "YQ==", Encode("a\x00b"))
}

func TestEncodeCredentials(t *testing.T) {
	encoded := EncodeCredentials("user", "pass")
	require.Equal(t, Encode("user")+"%%%"+Encode("pass"), encoded)
	require.Equal(t, "dXNlcg==%%%cGFzcw==", encoded)
}

package conversation

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestParseResponse(t *testing.T) {
	tests := []struct {
		name    string
		raw     string
		strip   bool
		want    string
		wantErr error
	}{
		{name: "stripped", raw: "YES\nCheck your firewall.", strip: true, want: "Check your firewall."},
		{name: "kept", raw: "YES\nCheck your firewall.", strip: false, want: "YES\nCheck your firewall."},
		{name: "crlf", raw: "YES\r\nFirst line.\r\nSecond line.", strip: true, want: "First line.\nSecond line."},
		{name: "double spacing", raw: "YES\nOpen  the   settings.\n\n\n\nThen restart.  ", strip: true, want: "Open the settings.\n\nThen restart."},
		{name: "leading blank lines", raw: "\n\nYES\nanswer", strip: true, want: "answer"},
		{name: "empty", raw: "", wantErr: ErrEmptyResponse},
		{name: "whitespace", raw: " \n\t ", wantErr: ErrEmptyResponse},
		{name: "off-topic", raw: "NO", wantErr: ErrOffTopic},
		{name: "off-topic with text", raw: "NO.\nThis is not about torrents.", wantErr: ErrOffTopic},
		{name: "sentinel inside first line", raw: "Answer: NO\nnot related", wantErr: ErrOffTopic},
		{name: "single line", raw: "YES", wantErr: ErrMalformedResponse},
		{name: "blank body", raw: "YES\n   \n", strip: true, wantErr: ErrMalformedResponse},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseResponse(tt.raw, "NO", tt.strip)
			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)
				require.Empty(t, got)
				return
			}

			require.NoError(t, err)
			require.Equal(t, tt.want, got)
		})
	}
}

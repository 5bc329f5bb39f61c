package feed

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nhle/milkfeed/internal/model"
)

func TestDecode(t *testing.T) {
	tests := []struct {
		name     string
		raw      string
		wantMsg  string
		wantKind model.Kind
		wantErr  bool
	}{
		{name: "message only", raw: `{"message":"Pickup #42 confirmed"}`, wantMsg: "Pickup #42 confirmed", wantKind: model.KindInfo},
		{name: "with type", raw: `{"message":"Fat below 3.2%","type":"quality"}`, wantMsg: "Fat below 3.2%", wantKind: model.KindQuality},
		{name: "unknown type", raw: `{"message":"x","type":"weird"}`, wantMsg: "x", wantKind: model.KindInfo},
		{name: "trims", raw: `{"message":"  Tanker 7 left  "}`, wantMsg: "Tanker 7 left", wantKind: model.KindInfo},
		{name: "extra fields", raw: `{"message":"ok","plant":3}`, wantMsg: "ok", wantKind: model.KindInfo},
		{name: "invalid json", raw: `not json`, wantErr: true},
		{name: "missing message", raw: `{"type":"info"}`, wantErr: true},
		{name: "empty message", raw: `{"message":"   "}`, wantErr: true},
		{name: "wrong type", raw: `{"message":42}`, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, err := Decode([]byte(tt.raw))
			if tt.wantErr {
				require.Error(t, err)
				assert.True(t, IsDecodeError(err))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantMsg, p.Message)
			assert.Equal(t, tt.wantKind, p.Kind)
		})
	}
}

func TestEncodeDecodes(t *testing.T) {
	raw, err := Encode(Payload{Message: "Route 5 \"late\"", Kind: model.KindWarning})
	require.NoError(t, err)

	p, err := Decode(raw)
	require.NoError(t, err)
	assert.Equal(t, "Route 5 \"late\"", p.Message)
	assert.Equal(t, model.KindWarning, p.Kind)
}

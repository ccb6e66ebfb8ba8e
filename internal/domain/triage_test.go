package domain

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestTriageLevel_Ordering(t *testing.T) {
	require.Less(t, int(TriageNone), int(TriageNotifyCareTeam))
	require.Less(t, int(TriageNotifyCareTeam), int(TriageCall911))

	require.Equal(t, TriageCall911, TriageNotifyCareTeam.Max(TriageCall911))
	require.Equal(t, TriageCall911, TriageCall911.Max(TriageNone))
	require.Equal(t, TriageNotifyCareTeam, TriageNone.Max(TriageNotifyCareTeam))
}

func TestTriageLevel_Text(t *testing.T) {
	for _, lvl := range []TriageLevel{TriageNone, TriageNotifyCareTeam, TriageCall911} {
		b, err := json.Marshal(lvl)
		require.NoError(t, err)
		var got TriageLevel
		require.NoError(t, json.Unmarshal(b, &got))
		require.Equal(t, lvl, got)
	}

	b, err := json.Marshal(TriageCall911)
	require.NoError(t, err)
	require.JSONEq(t, `"call_911"`, string(b))

	_, err = json.Marshal(TriageLevel(7))
	require.Error(t, err)
	require.Equal(t, "TriageLevel(7)", TriageLevel(7).String())

	var lvl TriageLevel
	require.Error(t, json.Unmarshal([]byte(`"urgent"`), &lvl))

	_, err = ParseTriageLevel("notify_care_team")
	require.NoError(t, err)
}

package protocol

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	tcerr "telectl/internal/errors"
)

var fixedTime = time.Date(2024, 3, 9, 14, 5, 7, 0, time.Local)

func TestRequest_Encode(t *testing.T) {
	tests := []struct {
		name string
		req  Request
		want string
	}{
		{
			name: "auth",
			req:  Request{Verb: VerbAuth, Args: []string{"alice", "p"}, Time: fixedTime},
			want: "AUTH: alice p\r\nUSER: \r\nTIMESTAMP: 2024-03-09 14:05:07\r\n\r\n",
		},
		{
			name: "no args keeps colon",
			req:  Request{Verb: VerbGetData, User: "admin", Time: fixedTime},
			want: "GET_DATA:\r\nUSER: admin\r\nTIMESTAMP: 2024-03-09 14:05:07\r\n\r\n",
		},
		{
			name: "vehicle command",
			req:  Request{Verb: VerbSendCmd, Args: []string{string(TurnLeft)}, User: "admin", Time: fixedTime},
			want: "SEND_CMD: TURN_LEFT\r\nUSER: admin\r\nTIMESTAMP: 2024-03-09 14:05:07\r\n\r\n",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, string(tt.req.Encode()))
		})
	}
}

func TestRequest_RoundTrip(t *testing.T) {
	req := Auth("", "alice", "p")
	req.Time = fixedTime

	got, err := ParseRequest(req.Encode())
	require.NoError(t, err)
	assert.Equal(t, VerbAuth, got.Verb)
	assert.Equal(t, []string{"alice", "p"}, got.Args)
	assert.Equal(t, "", got.User)
	assert.True(t, fixedTime.Equal(got.Time))
}

func TestParseRequest_Errors(t *testing.T) {
	_, err := ParseRequest([]byte("\r\n\r\n"))
	assert.Error(t, err)

	_, err = ParseRequest([]byte("GARBAGE\r\n\r\n"))
	assert.Error(t, err)

	_, err = ParseRequest([]byte("GET_DATA:\r\nUSER: x\r\nTIMESTAMP: yesterday\r\n\r\n"))
	assert.Error(t, err)
}

func TestVerb_Known(t *testing.T) {
	for _, v := range []Verb{VerbAuth, VerbGetData, VerbSendCmd, VerbListUsers, VerbRecharge, VerbDisconnect} {
		assert.True(t, v.Known(), v)
	}
	assert.False(t, Verb("auth").Known())
}

func TestParseVehicleCommand(t *testing.T) {
	for _, c := range VehicleCommands() {
		got, err := ParseVehicleCommand(string(c))
		require.NoError(t, err)
		assert.Equal(t, c, got)
	}

	for _, bad := range []string{"BRAKE_HARD", "speed_up", "", "RECHARGE"} {
		_, err := ParseVehicleCommand(bad)
		assert.ErrorIs(t, err, tcerr.ErrInvalidCommand, bad)
	}
}

func TestDecode(t *testing.T) {
	tests := []struct {
		in   string
		kind Kind
		body string
	}{
		{"AUTH_SUCCESS\r\n\r\n", KindAuthSuccess, ""},
		{"AUTH_FAILED\r\n", KindAuthFailed, ""},
		{"DATA: 10 80 25 STRAIGHT\r\nSERVER: telemetry_server\r\n", KindData, "10 80 25 STRAIGHT\r\nSERVER: telemetry_server"},
		{"OK: Turning left\r\n\r\n", KindOK, "Turning left"},
		{"ERROR: Not authorized\r\n", KindError, "Not authorized"},
		{"USERS: admin(127.0.0.1:5000) \r\n", KindUsers, "admin(127.0.0.1:5000)"},
		{"USERS:\r\n", KindUsers, ""},
		{"  hello there \n", KindUnknown, ""},
		{"ok: lowercase", KindUnknown, ""},
	}
	for _, tt := range tests {
		t.Run(tt.kind.String()+"/"+strings.TrimSpace(tt.in), func(t *testing.T) {
			f := Decode([]byte(tt.in))
			assert.Equal(t, tt.kind, f.Kind)
			assert.Equal(t, tt.body, f.Body)
			assert.Equal(t, strings.TrimSpace(tt.in), f.Raw)
		})
	}
}

func TestFrame_FirstLine(t *testing.T) {
	f := Decode([]byte("DATA: 1 2 3 LEFT\r\nSERVER: telemetry_server\r\nTIMESTAMP: 1700000000\r\n\r\n"))
	assert.Equal(t, "1 2 3 LEFT", f.FirstLine())
}

func TestParseUsers(t *testing.T) {
	assert.Equal(t, []string{"alice", "bob"}, ParseUsers("alice bob"))
	assert.Equal(t, []string{}, ParseUsers(""))
	assert.Equal(t, []string{"a"}, ParseUsers("a\r\nTIMESTAMP: 1"))
}

func TestParseReading(t *testing.T) {
	t.Run("full", func(t *testing.T) {
		r, err := ParseReading("45 80 -5 LEFT")
		require.NoError(t, err)
		assert.Equal(t, Reading{
			Speed: 45, Battery: 80, Temperature: -5, Direction: "LEFT",
			HasSpeed: true, HasBattery: true, HasTemperature: true,
		}, r)
	})

	t.Run("direction defaults", func(t *testing.T) {
		r, err := ParseReading("200 150 -5")
		require.NoError(t, err)
		assert.Equal(t, DefaultDirection, r.Direction)
		assert.Equal(t, 200, r.Speed, "clamping is the caller's job")
	})

	t.Run("bad battery keeps others", func(t *testing.T) {
		r, err := ParseReading("50 abc 30")
		require.Error(t, err)
		assert.True(t, r.HasSpeed)
		assert.False(t, r.HasBattery)
		assert.True(t, r.HasTemperature)

		var de *tcerr.DecodeError
		require.ErrorAs(t, err, &de)
		assert.Equal(t, "battery", de.Field)
		assert.Equal(t, "abc", de.Token)
	})

	t.Run("missing fields", func(t *testing.T) {
		r, err := ParseReading("12")
		require.Error(t, err)
		assert.True(t, r.HasSpeed)
		assert.False(t, r.HasBattery)
		assert.False(t, r.HasTemperature)
		assert.Equal(t, tcerr.KindDecodeAnomaly, tcerr.KindOf(err))
	})

	t.Run("only first line", func(t *testing.T) {
		r, err := ParseReading("1 2 3\r\nSERVER: telemetry_server")
		require.NoError(t, err)
		assert.Equal(t, DefaultDirection, r.Direction)
	})
}

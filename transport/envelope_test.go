package transport

import (
	"chat-hub/domain"
	"chat-hub/domain/event"
	"chat-hub/errors"
	"context"
	"log/slog"
	"net/http/httptest"
	"testing"

	"github.com/mama165/sdk-go/logs"
	"github.com/stretchr/testify/require"
)

func TestDecode_Maps_Every_Inbound_Event(t *testing.T) {
	connID := domain.ConnectionID("c1")
	cases := []struct {
		frame string
		want  domain.Command
	}{
		{`{"event":"joinRoom","data":{"username":"alice","room":"lobby","theme":"dark"}}`,
			domain.JoinRoomCommand{ConnID: connID, Username: "alice", Room: "lobby", Theme: "dark"}},
		{`{"event":"chatMessage","data":"hi"}`,
			domain.ChatMessageCommand{ConnID: connID, Text: "hi"}},
		{`{"event":"privateMessage","data":{"toUsername":"bob","message":"psst"}}`,
			domain.PrivateMessageCommand{ConnID: connID, ToUsername: "bob", Text: "psst"}},
		{`{"event":"requestPrivateHistory","data":{"otherUsername":"bob"}}`,
			domain.PrivateHistoryCommand{ConnID: connID, OtherUsername: "bob"}},
		{`{"event":"createGroup","data":{"groupName":"devs"}}`,
			domain.CreateGroupCommand{ConnID: connID, GroupName: "devs"}},
		{`{"event":"joinGroup","data":{"groupName":"devs"}}`,
			domain.JoinGroupCommand{ConnID: connID, GroupName: "devs"}},
		{`{"event":"groupMessage","data":{"groupName":"devs","message":"ship it"}}`,
			domain.GroupMessageCommand{ConnID: connID, GroupName: "devs", Text: "ship it"}},
		{`{"event":"requestGroupHistory","data":{"groupName":"devs"}}`,
			domain.GroupHistoryCommand{ConnID: connID, GroupName: "devs"}},
		{`{"event":"requestGroups"}`, domain.ListGroupsCommand{ConnID: connID}},
		{`{"event":"requestRoomHistory","data":null}`, domain.RoomHistoryCommand{ConnID: connID}},
		{`{"event":"changeTheme","data":{"theme":"dark"}}`,
			domain.ChangeThemeCommand{ConnID: connID, Theme: "dark"}},
	}

	for _, tc := range cases {
		t.Run(tc.frame, func(t *testing.T) {
			req := require.New(t)
			cmd, err := Decode(connID, []byte(tc.frame))
			req.NoError(err)
			req.Equal(tc.want, cmd)
		})
	}
}

func TestDecode_Missing_Data_Yields_Zero_Payload(t *testing.T) {
	req := require.New(t)

	// When a join arrives without data
	cmd, err := Decode("c1", []byte(`{"event":"joinRoom"}`))

	// Then the command is empty and left for the coordinator to reject
	req.NoError(err)
	req.Equal(domain.JoinRoomCommand{ConnID: "c1"}, cmd)
}

func TestDecode_Rejects_Bad_Frames(t *testing.T) {
	req := require.New(t)

	_, err := Decode("c1", []byte(`{"event":"shout","data":"x"}`))
	req.ErrorIs(err, errors.ErrUnknownEvent)

	_, err = Decode("c1", []byte(`not json`))
	req.ErrorIs(err, errors.ErrInvalidPayload)

	_, err = Decode("c1", []byte(`{"event":"chatMessage","data":{"text":"hi"}}`))
	req.ErrorIs(err, errors.ErrInvalidPayload)
}

func TestEncode_Wraps_Event_In_Envelope(t *testing.T) {
	req := require.New(t)

	// Given a theme event
	e := event.New(event.ThemePreference, event.ThemePayload{Theme: "dark"})

	// When encoding it
	frame, err := Encode(e)

	// Then it follows the event/data envelope
	req.NoError(err)
	req.JSONEq(`{"event":"themePreference","data":{"theme":"dark"}}`, string(frame))
}

func TestSink_Drops_When_Full_And_After_Close(t *testing.T) {
	req := require.New(t)
	ctx := context.Background()

	// Given a sink holding a single event
	sink := NewSink(1)
	req.NoError(sink.Consume(ctx, event.New(event.Message, nil)))

	// Then a second event is refused
	req.ErrorIs(sink.Consume(ctx, event.New(event.Message, nil)), errors.ErrSinkFull)

	// When the sink is closed twice
	sink.Close()
	sink.Close()

	// Then every further event is refused
	req.ErrorIs(sink.Consume(ctx, event.New(event.Message, nil)), errors.ErrConnectionClosed)
}

func TestOriginPolicy(t *testing.T) {
	log := logs.GetLoggerFromLevel(slog.LevelDebug)
	cases := []struct {
		name    string
		allowed []string
		origin  string
		want    bool
	}{
		{"empty list allows all", nil, "https://anything.example", true},
		{"wildcard allows all", []string{"*"}, "https://anything.example", true},
		{"listed origin", []string{"https://Chat.Example"}, "https://chat.example", true},
		{"unlisted origin", []string{"https://chat.example"}, "https://evil.example", false},
		{"missing header", []string{"https://chat.example"}, "", false},
		{"only invalid entries", []string{"not-an-origin"}, "https://chat.example", false},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			r := httptest.NewRequest("GET", "/ws", nil)
			if tc.origin != "" {
				r.Header.Set("Origin", tc.origin)
			}
			require.Equal(t, tc.want, NewOriginPolicy(log, tc.allowed).Check(r))
		})
	}
}

func TestEncode_Message_View_Field_Names(t *testing.T) {
	req := require.New(t)

	frame, err := Encode(event.New(event.Message, event.MessageView{
		Username: "alice", Message: "hi", Timestamp: "9:00 am", CreatedAt: 1,
	}))

	req.NoError(err)
	req.JSONEq(`{"event":"message","data":{"username":"alice","message":"hi","timestamp":"9:00 am","createdAt":1}}`,
		string(frame))
}

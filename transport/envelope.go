package transport

import (
	"bytes"
	"chat-hub/domain"
	"chat-hub/domain/event"
	"chat-hub/errors"
	"encoding/json"
	"fmt"
)

// Inbound event names, as sent by browsers.
const (
	JoinRoom              = "joinRoom"
	ChatMessage           = "chatMessage"
	PrivateMessage        = "privateMessage"
	RequestPrivateHistory = "requestPrivateHistory"
	CreateGroup           = "createGroup"
	JoinGroup             = "joinGroup"
	GroupMessage          = "groupMessage"
	RequestGroupHistory   = "requestGroupHistory"
	RequestGroups         = "requestGroups"
	RequestRoomHistory    = "requestRoomHistory"
	ChangeTheme           = "changeTheme"
)

type inboundEnvelope struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data"`
}

type outboundEnvelope struct {
	Event event.Name `json:"event"`
	Data  any        `json:"data"`
}

type joinRoomData struct {
	Username string `json:"username"`
	Room     string `json:"room"`
	Theme    string `json:"theme"`
}

type privateMessageData struct {
	ToUsername string `json:"toUsername"`
	Message    string `json:"message"`
}

type privateHistoryData struct {
	OtherUsername string `json:"otherUsername"`
}

type groupData struct {
	GroupName string `json:"groupName"`
	Message   string `json:"message"`
}

type themeData struct {
	Theme string `json:"theme"`
}

// Decode turns one inbound frame into the command it stands for.
// Missing data decodes to the zero payload and is left to the coordinator to reject.
func Decode(connID domain.ConnectionID, frame []byte) (domain.Command, error) {
	var in inboundEnvelope
	if err := json.Unmarshal(frame, &in); err != nil {
		return nil, fmt.Errorf("%w: %v", errors.ErrInvalidPayload, err)
	}

	switch in.Event {
	case JoinRoom:
		var d joinRoomData
		if err := decodeData(in.Data, &d); err != nil {
			return nil, err
		}
		return domain.JoinRoomCommand{ConnID: connID, Username: d.Username, Room: d.Room, Theme: d.Theme}, nil
	case ChatMessage:
		var text string
		if err := decodeData(in.Data, &text); err != nil {
			return nil, err
		}
		return domain.ChatMessageCommand{ConnID: connID, Text: text}, nil
	case PrivateMessage:
		var d privateMessageData
		if err := decodeData(in.Data, &d); err != nil {
			return nil, err
		}
		return domain.PrivateMessageCommand{ConnID: connID, ToUsername: d.ToUsername, Text: d.Message}, nil
	case RequestPrivateHistory:
		var d privateHistoryData
		if err := decodeData(in.Data, &d); err != nil {
			return nil, err
		}
		return domain.PrivateHistoryCommand{ConnID: connID, OtherUsername: d.OtherUsername}, nil
	case CreateGroup:
		var d groupData
		if err := decodeData(in.Data, &d); err != nil {
			return nil, err
		}
		return domain.CreateGroupCommand{ConnID: connID, GroupName: d.GroupName}, nil
	case JoinGroup:
		var d groupData
		if err := decodeData(in.Data, &d); err != nil {
			return nil, err
		}
		return domain.JoinGroupCommand{ConnID: connID, GroupName: d.GroupName}, nil
	case GroupMessage:
		var d groupData
		if err := decodeData(in.Data, &d); err != nil {
			return nil, err
		}
		return domain.GroupMessageCommand{ConnID: connID, GroupName: d.GroupName, Text: d.Message}, nil
	case RequestGroupHistory:
		var d groupData
		if err := decodeData(in.Data, &d); err != nil {
			return nil, err
		}
		return domain.GroupHistoryCommand{ConnID: connID, GroupName: d.GroupName}, nil
	case RequestGroups:
		return domain.ListGroupsCommand{ConnID: connID}, nil
	case RequestRoomHistory:
		return domain.RoomHistoryCommand{ConnID: connID}, nil
	case ChangeTheme:
		var d themeData
		if err := decodeData(in.Data, &d); err != nil {
			return nil, err
		}
		return domain.ChangeThemeCommand{ConnID: connID, Theme: d.Theme}, nil
	default:
		return nil, fmt.Errorf("%w: %q", errors.ErrUnknownEvent, in.Event)
	}
}

func decodeData(data json.RawMessage, v any) error {
	if len(bytes.TrimSpace(data)) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("%w: %v", errors.ErrInvalidPayload, err)
	}
	return nil
}

// Encode renders an outbound event as a wire frame.
func Encode(e event.Event) ([]byte, error) {
	return json.Marshal(outboundEnvelope{Event: e.Name, Data: e.Payload})
}

package e2e

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
)

type testChatSuite struct {
	BaseSuite
}

func TestChatSuite(t *testing.T) {
	suite.Run(t, &testChatSuite{})
}

func uniqueName(prefix string) string {
	return prefix + "-" + uuid.NewString()[:8]
}

func (s *testChatSuite) TestAdminHealthIsServing() {
	s.WithHealth("Checking chat service health", func(ctx context.Context, client healthpb.HealthClient) {
		resp, err := client.Check(ctx, &healthpb.HealthCheckRequest{Service: "chat"})
		s.Require().NoError(err)
		s.Require().Equal(healthpb.HealthCheckResponse_SERVING, resp.Status)
	})
}

func (s *testChatSuite) TestRoomGroupAndPrivateFlow() {
	room := uniqueName("room")
	group := uniqueName("grp")
	alice, bob := uniqueName("alice"), uniqueName("bob")

	aliceConn := s.Socket("Alice connects")
	bobConn := s.Socket("Bob connects")

	s.Run("Step 1: both join the same room", func() {
		s.Send(aliceConn, "joinRoom", map[string]string{"username": alice, "room": room})
		s.Await(aliceConn, "themePreference")
		s.Send(bobConn, "joinRoom", map[string]string{"username": bob, "room": room})
		s.Await(bobConn, "themePreference")

		var roster struct {
			Users []struct {
				Username string `json:"username"`
			} `json:"users"`
		}
		s.Require().NoError(json.Unmarshal(s.Await(aliceConn, "roomUsers").Data, &roster))
		s.Require().Len(roster.Users, 2)
	})

	s.Run("Step 2: a room message reaches the peer", func() {
		s.Send(aliceConn, "chatMessage", "hello from e2e")
		for {
			var msg struct {
				Username string `json:"username"`
				Message  string `json:"message"`
			}
			s.Require().NoError(json.Unmarshal(s.Await(bobConn, "message").Data, &msg))
			if msg.Username == alice {
				s.Require().Equal("hello from e2e", msg.Message)
				return
			}
		}
	})

	s.Run("Step 3: group creation and membership", func() {
		s.Send(aliceConn, "createGroup", map[string]string{"groupName": group})
		s.Await(aliceConn, "groupCreated")
		s.Send(bobConn, "joinGroup", map[string]string{"groupName": group})
		s.Await(bobConn, "groupJoinedSuccess")
		s.Await(aliceConn, "groupJoined")

		s.Send(bobConn, "groupMessage", map[string]string{"groupName": group, "message": "hi group"})
		s.Await(aliceConn, "groupMessage")
	})

	s.Run("Step 4: private message and history", func() {
		s.Send(aliceConn, "privateMessage", map[string]string{"toUsername": bob, "message": "psst"})
		var pm struct {
			From    string `json:"from"`
			Message struct {
				Message string `json:"message"`
			} `json:"message"`
		}
		s.Require().NoError(json.Unmarshal(s.Await(bobConn, "privateMessage").Data, &pm))
		s.Require().Equal(alice, pm.From)
		s.Require().Equal("psst", pm.Message.Message)

		s.Send(bobConn, "requestPrivateHistory", map[string]string{"otherUsername": alice})
		s.Await(bobConn, "privateHistory")
	})
}

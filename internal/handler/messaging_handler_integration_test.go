package handler_test

import (
	"fmt"
	"net/http"
	"testing"

	"github.com/google/uuid"
	"github.com/lify-app/lify-backend/internal/broker"
	"github.com/lify-app/lify-backend/internal/models"
	"github.com/lify-app/lify-backend/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
)

type MessagingHandlerIntegrationTestSuite struct {
	suite.Suite
	app     *testApp
	emitter *testutil.RecordingEmitter

	alice      *models.User
	aliceToken string
	bob        *models.User
	bobToken   string
	carol      *models.User // private
	carolToken string
}

func (s *MessagingHandlerIntegrationTestSuite) SetupTest() {
	s.emitter = testutil.NewRecordingEmitter()
	s.app = newTestApp(s.T(), s.emitter)

	s.alice, s.aliceToken = s.app.user("alice", false)
	s.bob, s.bobToken = s.app.user("bob", false)
	s.carol, s.carolToken = s.app.user("carol", true)
}

func (s *MessagingHandlerIntegrationTestSuite) send(token string, to *models.User, content string) map[string]interface{} {
	w := s.app.do(http.MethodPost, "/api/messages/to/"+to.ID.String(), token, map[string]string{"content": content})
	require.Equal(s.T(), http.StatusCreated, w.Code, w.Body.String())
	return decode(s.T(), w)
}

func idOf(v interface{}) string {
	return v.(map[string]interface{})["id"].(string)
}

func (s *MessagingHandlerIntegrationTestSuite) TestSendAndList() {
	body := s.send(s.aliceToken, s.bob, "hello bob")
	assert.Equal(s.T(), "NORMAL", body["conversationStatus"])
	assert.Equal(s.T(), false, body["isRequest"])

	message := body["message"].(map[string]interface{})
	assert.Equal(s.T(), "hello bob", message["content"])
	assert.Equal(s.T(), "text", message["type"])
	assert.Equal(s.T(), s.alice.ID.String(), message["senderId"])

	w := s.app.do(http.MethodGet, "/api/messages/with/"+s.alice.ID.String(), s.bobToken, nil)
	require.Equal(s.T(), http.StatusOK, w.Code)
	page := decode(s.T(), w)
	assert.Equal(s.T(), idOf(body["conversation"]), page["conversationId"])
	assert.Len(s.T(), page["messages"], 1)
	assert.Nil(s.T(), page["nextCursor"])

	w = s.app.do(http.MethodGet, "/api/conversations", s.bobToken, nil)
	require.Equal(s.T(), http.StatusOK, w.Code)
	items := decode(s.T(), w)["conversations"].([]interface{})
	require.Len(s.T(), items, 1)
	item := items[0].(map[string]interface{})
	assert.Equal(s.T(), float64(1), item["unreadCount"])
	assert.Equal(s.T(), "alice", item["otherUser"].(map[string]interface{})["username"])
	assert.Contains(s.T(), item, "requestInfo")
}

func (s *MessagingHandlerIntegrationTestSuite) TestListWith_QueryValidation() {
	path := "/api/messages/with/" + s.bob.ID.String()

	assert.Equal(s.T(), http.StatusBadRequest, s.app.do(http.MethodGet, path+"?limit=abc", s.aliceToken, nil).Code)
	assert.Equal(s.T(), http.StatusBadRequest, s.app.do(http.MethodGet, path+"?cursor=nope", s.aliceToken, nil).Code)
	assert.Equal(s.T(), http.StatusBadRequest, s.app.do(http.MethodGet, path+"?since=yesterday", s.aliceToken, nil).Code)

	w := s.app.do(http.MethodGet, path+"?since=2020-01-01T00:00:00Z&limit=500", s.aliceToken, nil)
	require.Equal(s.T(), http.StatusOK, w.Code)
	page := decode(s.T(), w)
	assert.Nil(s.T(), page["conversationId"])
	assert.Equal(s.T(), []interface{}{}, page["messages"])

	unknown := "/api/messages/with/" + uuid.NewString()
	assert.Equal(s.T(), http.StatusNotFound, s.app.do(http.MethodGet, unknown, s.aliceToken, nil).Code)
}

func (s *MessagingHandlerIntegrationTestSuite) TestSend_ErrorMapping() {
	tests := []struct {
		name   string
		path   string
		body   interface{}
		status int
	}{
		{"bad recipient id", "/api/messages/to/not-a-uuid", map[string]string{"content": "x"}, http.StatusBadRequest},
		{"empty", "/api/messages/to/" + s.bob.ID.String(), map[string]string{"content": "  "}, http.StatusBadRequest},
		{"self", "/api/messages/to/" + s.alice.ID.String(), map[string]string{"content": "me"}, http.StatusBadRequest},
		{"unknown recipient", "/api/messages/to/" + uuid.NewString(), map[string]string{"content": "x"}, http.StatusNotFound},
		{"bad type", "/api/messages/to/" + s.bob.ID.String(), map[string]string{"content": "x", "type": "gif"}, http.StatusBadRequest},
	}

	for _, tt := range tests {
		s.Run(tt.name, func() {
			w := s.app.do(http.MethodPost, tt.path, s.aliceToken, tt.body)
			assert.Equal(s.T(), tt.status, w.Code, w.Body.String())
			assert.NotEmpty(s.T(), decode(s.T(), w)["error"])
		})
	}
}

func (s *MessagingHandlerIntegrationTestSuite) TestRequestFlow() {
	body := s.send(s.aliceToken, s.carol, "hi carol")
	assert.Equal(s.T(), "REQUEST", body["conversationStatus"])
	assert.Equal(s.T(), true, body["isRequest"])
	assert.Equal(s.T(), true, body["isInitiator"])
	convID := idOf(body["conversation"])

	assert.Equal(s.T(), []string{broker.EventRequestNew}, s.emitter.Types(s.carol.ID))

	w := s.app.do(http.MethodGet, "/api/conversations/requests/count", s.carolToken, nil)
	assert.Equal(s.T(), float64(1), decode(s.T(), w)["count"])

	w = s.app.do(http.MethodGet, "/api/conversations/requests/inbox", s.carolToken, nil)
	assert.Len(s.T(), decode(s.T(), w)["conversations"], 1)

	w = s.app.do(http.MethodGet, "/api/conversations/requests/sent", s.aliceToken, nil)
	assert.Len(s.T(), decode(s.T(), w)["conversations"], 1)

	w = s.app.do(http.MethodGet, "/api/conversations", s.carolToken, nil)
	assert.Len(s.T(), decode(s.T(), w)["conversations"], 0)

	// receiver must accept before replying
	w = s.app.do(http.MethodPost, "/api/messages/to/"+s.alice.ID.String(), s.carolToken, map[string]string{"content": "hey"})
	assert.Equal(s.T(), http.StatusForbidden, w.Code)

	// the initiator cannot accept
	w = s.app.do(http.MethodPost, fmt.Sprintf("/api/conversations/%s/accept", convID), s.aliceToken, nil)
	assert.Equal(s.T(), http.StatusForbidden, w.Code)

	// outsiders cannot either
	w = s.app.do(http.MethodPost, fmt.Sprintf("/api/conversations/%s/accept", convID), s.bobToken, nil)
	assert.Equal(s.T(), http.StatusForbidden, w.Code)

	w = s.app.do(http.MethodPost, fmt.Sprintf("/api/conversations/%s/accept", convID), s.carolToken, nil)
	require.Equal(s.T(), http.StatusOK, w.Code, w.Body.String())
	conv := decode(s.T(), w)["conversation"].(map[string]interface{})
	assert.Equal(s.T(), "NORMAL", conv["status"])
	assert.Contains(s.T(), s.emitter.Types(s.alice.ID), broker.EventRequestAccepted)

	// accepting twice is a state conflict
	w = s.app.do(http.MethodPost, fmt.Sprintf("/api/conversations/%s/accept", convID), s.carolToken, nil)
	assert.Equal(s.T(), http.StatusBadRequest, w.Code)

	reply := s.send(s.carolToken, s.alice, "hi alice")
	assert.Equal(s.T(), "NORMAL", reply["conversationStatus"])
}

func (s *MessagingHandlerIntegrationTestSuite) TestRejectFlow() {
	convID := idOf(s.send(s.aliceToken, s.carol, "hi")["conversation"])

	w := s.app.do(http.MethodDelete, fmt.Sprintf("/api/conversations/%s/request", convID), s.carolToken, nil)
	require.Equal(s.T(), http.StatusOK, w.Code, w.Body.String())
	assert.Equal(s.T(), "REJECTED", decode(s.T(), w)["conversation"].(map[string]interface{})["status"])

	w = s.app.do(http.MethodPost, "/api/messages/to/"+s.carol.ID.String(), s.aliceToken, map[string]string{"content": "again"})
	assert.Equal(s.T(), http.StatusForbidden, w.Code)

	w = s.app.do(http.MethodGet, "/api/conversations/requests/inbox?includeRejected=true", s.carolToken, nil)
	assert.Len(s.T(), decode(s.T(), w)["conversations"], 1)

	w = s.app.do(http.MethodGet, "/api/conversations/requests/inbox", s.carolToken, nil)
	assert.Len(s.T(), decode(s.T(), w)["conversations"], 0)
}

func (s *MessagingHandlerIntegrationTestSuite) TestEditDeleteReactRead() {
	body := s.send(s.aliceToken, s.bob, "typo")
	messageID := idOf(body["message"])
	convID := idOf(body["conversation"])

	w := s.app.do(http.MethodPatch, "/api/messages/"+messageID, s.bobToken, map[string]string{"content": "hijack"})
	assert.Equal(s.T(), http.StatusForbidden, w.Code)

	w = s.app.do(http.MethodPatch, "/api/messages/"+messageID, s.aliceToken, map[string]string{"content": "fixed"})
	require.Equal(s.T(), http.StatusOK, w.Code)
	edited := decode(s.T(), w)["message"].(map[string]interface{})
	assert.Equal(s.T(), "fixed", edited["content"])
	assert.NotNil(s.T(), edited["editedAt"])

	w = s.app.do(http.MethodPost, "/api/messages/"+messageID+"/reactions", s.bobToken, map[string]string{"emoji": "🔥"})
	require.Equal(s.T(), http.StatusOK, w.Code, w.Body.String())
	assert.Equal(s.T(), "🔥", decode(s.T(), w)["reaction"].(map[string]interface{})["emoji"])

	w = s.app.do(http.MethodPost, "/api/messages/"+messageID+"/reactions", s.bobToken, map[string]string{"emoji": "lol"})
	assert.Equal(s.T(), http.StatusBadRequest, w.Code)

	w = s.app.do(http.MethodDelete, "/api/messages/"+messageID+"/reactions", s.bobToken, nil)
	assert.Equal(s.T(), http.StatusOK, w.Code)
	w = s.app.do(http.MethodDelete, "/api/messages/"+messageID+"/reactions", s.bobToken, nil)
	assert.Equal(s.T(), http.StatusNotFound, w.Code)

	w = s.app.do(http.MethodPost, "/api/messages/read/"+convID, s.bobToken, nil)
	require.Equal(s.T(), http.StatusOK, w.Code)
	assert.Equal(s.T(), float64(1), decode(s.T(), w)["count"])

	w = s.app.do(http.MethodPost, "/api/messages/read/"+convID, s.carolToken, nil)
	assert.Equal(s.T(), http.StatusForbidden, w.Code)

	w = s.app.do(http.MethodDelete, "/api/messages/"+messageID, s.aliceToken, nil)
	require.Equal(s.T(), http.StatusOK, w.Code)
	deleted := decode(s.T(), w)["message"].(map[string]interface{})
	assert.Nil(s.T(), deleted["content"])
	assert.NotNil(s.T(), deleted["deletedAt"])

	w = s.app.do(http.MethodDelete, "/api/messages/"+messageID, s.aliceToken, nil)
	assert.Equal(s.T(), http.StatusOK, w.Code)
}

func (s *MessagingHandlerIntegrationTestSuite) TestHideConversation() {
	convID := idOf(s.send(s.aliceToken, s.bob, "hello")["conversation"])

	w := s.app.do(http.MethodDelete, "/api/conversations/"+convID, s.aliceToken, nil)
	require.Equal(s.T(), http.StatusOK, w.Code)

	w = s.app.do(http.MethodGet, "/api/conversations", s.aliceToken, nil)
	assert.Len(s.T(), decode(s.T(), w)["conversations"], 0)

	s.send(s.bobToken, s.alice, "ping")

	w = s.app.do(http.MethodGet, "/api/conversations", s.aliceToken, nil)
	assert.Len(s.T(), decode(s.T(), w)["conversations"], 1)

	w = s.app.do(http.MethodDelete, "/api/conversations/"+uuid.NewString(), s.aliceToken, nil)
	assert.Equal(s.T(), http.StatusNotFound, w.Code)
}

func (s *MessagingHandlerIntegrationTestSuite) TestPrivacyAndFollow() {
	w := s.app.do(http.MethodPatch, "/api/users/me/privacy", s.bobToken, map[string]bool{"isPrivate": true})
	require.Equal(s.T(), http.StatusOK, w.Code)
	assert.Equal(s.T(), true, decode(s.T(), w)["user"].(map[string]interface{})["isPrivate"])

	w = s.app.do(http.MethodPatch, "/api/users/me/privacy", s.bobToken, map[string]string{})
	assert.Equal(s.T(), http.StatusBadRequest, w.Code)

	w = s.app.do(http.MethodPost, "/api/users/"+s.bob.ID.String()+"/follow", s.aliceToken, nil)
	require.Equal(s.T(), http.StatusOK, w.Code)

	// a follower reaches a private profile directly
	assert.Equal(s.T(), "NORMAL", s.send(s.aliceToken, s.bob, "hi")["conversationStatus"])

	w = s.app.do(http.MethodDelete, "/api/users/"+s.bob.ID.String()+"/follow", s.aliceToken, nil)
	assert.Equal(s.T(), http.StatusOK, w.Code)

	w = s.app.do(http.MethodPost, "/api/users/"+s.alice.ID.String()+"/follow", s.aliceToken, nil)
	assert.Equal(s.T(), http.StatusBadRequest, w.Code)
}

func (s *MessagingHandlerIntegrationTestSuite) TestHealthz() {
	w := s.app.do(http.MethodGet, "/healthz", "", nil)
	assert.Equal(s.T(), http.StatusOK, w.Code)
	assert.Equal(s.T(), "nosniff", w.Header().Get("X-Content-Type-Options"))
}

func TestMessagingHandlerIntegrationTestSuite(t *testing.T) {
	suite.Run(t, new(MessagingHandlerIntegrationTestSuite))
}

package handler_test

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/lify-app/lify-backend/internal/broker"
	"github.com/lify-app/lify-backend/internal/handler"
	"github.com/lify-app/lify-backend/internal/models"
	"github.com/lify-app/lify-backend/internal/repository"
	"github.com/lify-app/lify-backend/internal/service"
	"github.com/lify-app/lify-backend/internal/testutil"
	"github.com/lify-app/lify-backend/internal/utils"
	"github.com/stretchr/testify/require"
)

const testSecret = "test-secret-key"

// testApp is the full HTTP surface over an in-memory database
type testApp struct {
	t       *testing.T
	testDB  *testutil.TestDatabase
	router  *gin.Engine
	hub     *handler.Hub
	clock   *testutil.Clock
	handler handler.Handlers
}

func newTestApp(t *testing.T, emitter broker.Emitter) *testApp {
	gin.SetMode(gin.TestMode)

	testDB := testutil.SetupTestDatabase(t)
	t.Cleanup(func() { testDB.Teardown(t) })

	db := testDB.DB
	tx := repository.NewTxManager(db)
	userRepo := repository.NewUserRepository(db)
	convRepo := repository.NewConversationRepository(db)
	messageRepo := repository.NewMessageRepository(db)

	clock := testutil.DefaultClock()
	conversations := service.NewConversationService(tx, convRepo, userRepo, emitter)
	conversations.SetClock(clock.Now)
	messages := service.NewMessageService(tx, messageRepo, convRepo, userRepo, conversations, emitter)
	messages.SetClock(clock.Now)

	hub := handler.NewHub()
	handlers := handler.Handlers{
		Auth:          handler.NewAuthHandler(service.NewAuthService(userRepo, testSecret, time.Hour), false),
		Messages:      handler.NewMessageHandler(messages),
		Conversations: handler.NewConversationHandler(conversations),
		Users:         handler.NewUserHandler(service.NewUserService(userRepo)),
		WebSocket:     handler.NewWebSocketHandler(hub, messages, nil, []string{"*"}),
	}

	router := handler.NewRouter(handlers, handler.RouterConfig{
		JWTSecret:      testSecret,
		AllowedOrigins: []string{"*"},
	})

	return &testApp{t: t, testDB: testDB, router: router, hub: hub, clock: clock, handler: handlers}
}

// user creates a user and returns it with a valid token
func (a *testApp) user(username string, isPrivate bool) (*models.User, string) {
	user := testutil.CreateTestUser(a.t, a.testDB.DB, username, isPrivate)
	token, err := utils.GenerateToken(user, testSecret, time.Hour)
	require.NoError(a.t, err)
	return user, token
}

func (a *testApp) do(method, path, token string, body interface{}) *httptest.ResponseRecorder {
	var reader *bytes.Buffer
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(a.t, err)
		reader = bytes.NewBuffer(raw)
	} else {
		reader = &bytes.Buffer{}
	}

	req, err := http.NewRequest(method, path, reader)
	require.NoError(a.t, err)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	w := httptest.NewRecorder()
	a.router.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder) map[string]interface{} {
	var out map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out), w.Body.String())
	return out
}

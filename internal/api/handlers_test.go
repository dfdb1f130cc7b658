package api

import (
	"bytes"
	"database/sql"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/chatrix/chatrix/internal/config"
	"github.com/chatrix/chatrix/internal/database"
	"github.com/chatrix/chatrix/internal/server"
	"github.com/chatrix/chatrix/internal/stats"
	"github.com/chatrix/chatrix/internal/testutil"
	"github.com/chatrix/chatrix/internal/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

func newTestApp(t *testing.T, db database.ChatrixRepository, cs *server.ChatServer) *ChatrixApp {
	t.Helper()

	cfg := &config.Config{
		ServerAddr:     "localhost:8080",
		DatabaseDSN:    "dsn",
		SigningKey:     []byte("secret"),
		AllowedOrigins: []string{"http://localhost:3000"},
	}

	return NewChatrixApp(http.NewServeMux(), testutil.TestLogger(t), cs, db, nil, cfg)
}

// newRunningChatServer starts a hub whose coordinator loop is live, for
// handlers which route through it.
func newRunningChatServer(t *testing.T, db database.ChatrixRepository) *server.ChatServer {
	t.Helper()

	ms := &stats.MockStatsUpdater{}
	ms.On("Incr", mock.Anything).Maybe()
	ms.On("Decr", mock.Anything).Maybe()

	cs, err := server.NewChatServer(testutil.TestLogger(t), db, nil, ms, time.Second)
	assert.NoError(t, err, "expected no error creating chat server")

	go cs.Run()
	t.Cleanup(cs.Shutdown)
	return cs
}

func assertApiError(t *testing.T, rr *httptest.ResponseRecorder, expected *ApiError) {
	t.Helper()

	var apiErr ApiError
	err := json.NewDecoder(rr.Body).Decode(&apiErr)
	assert.NoError(t, err, "failed to decode error response")
	assert.Equal(t, expected.StatusCode, rr.Code, "expected status code to match")
	assert.Equal(t, *expected, apiErr, "expected ApiError response")
}

func TestNewChatrixApp(t *testing.T) {
	mux := http.NewServeMux()
	logger := testutil.TestLogger(t)
	cs := &server.ChatServer{}
	db := &database.MockChatrixRepository{}
	cfg := &config.Config{
		ServerAddr:     "localhost:8080",
		DatabaseDSN:    "dsn",
		SigningKey:     []byte("secret"),
		AllowedOrigins: []string{"http://localhost:3000"},
	}

	app := NewChatrixApp(mux, logger, cs, db, nil, cfg)

	assert.NotNil(t, app, "expected app to be initialized")
	assert.NotNil(t, app.mux, "expected mux to be initialized")
	assert.NotNil(t, app.generateShortId, "expected shortid generator to be set")
	assert.Equal(t, app.log, logger, "expected logger to be set")
	assert.Equal(t, app.db, db, "expected db to be set")
	assert.Equal(t, app.cs, cs, "expected chat server to be set")
	assert.Equal(t, app.signingKey, cfg.SigningKey, "expected signing key to be set")
	assert.Equal(t, app.mux.Addr, cfg.ServerAddr, "expected server address to match config")
}

func Test_healthCheck(t *testing.T) {
	tcases := []struct {
		name    string
		mockErr error
		code    int
	}{
		{
			name:    "healthy",
			mockErr: nil,
			code:    http.StatusOK,
		},
		{
			name:    "db unreachable",
			mockErr: errors.New("connection refused"),
			code:    http.StatusInternalServerError,
		},
	}

	for _, tc := range tcases {
		t.Run(tc.name, func(t *testing.T) {
			mockRepo := &database.MockChatrixRepository{}
			defer mockRepo.AssertExpectations(t)
			mockRepo.On("Ping").Return(tc.mockErr).Once()

			app := newTestApp(t, mockRepo, nil)

			rr := httptest.NewRecorder()
			app.healthCheck(rr, httptest.NewRequest(http.MethodGet, "/healthz", nil))

			assert.Equal(t, tc.code, rr.Code)
			if tc.code == http.StatusOK {
				assert.Equal(t, "OK", rr.Body.String())
			}
		})
	}
}

func Test_createRoom(t *testing.T) {
	now := time.Now().UTC()
	mockRoom := database.Room{
		Id:        1,
		Code:      "abc123",
		Name:      "Team",
		OwnerId:   1,
		SeqId:     0,
		CreatedAt: now,
		UpdatedAt: now,
	}

	tcases := []struct {
		name        string
		userId      int
		body        any
		mockRoom    database.Room
		mockErr     error
		expectedErr *ApiError
	}{
		{
			name:     "creates room with supplied code",
			userId:   1,
			body:     CreateRoomRequest{Code: "abc123", Name: "Team"},
			mockRoom: mockRoom,
		},
		{
			name:        "fails without authenticated user",
			userId:      0,
			body:        CreateRoomRequest{Code: "abc123", Name: "Team"},
			expectedErr: NewUnauthorizedError(),
		},
		{
			name:        "fails with missing name",
			userId:      1,
			body:        CreateRoomRequest{Code: "abc123"},
			expectedErr: NewBadRequestError(),
		},
		{
			name:        "fails with invalid json body",
			userId:      1,
			body:        "invalid json",
			expectedErr: NewBadRequestError(),
		},
		{
			name:        "fails when code is taken",
			userId:      1,
			body:        CreateRoomRequest{Code: "abc123", Name: "Team"},
			mockErr:     database.ErrDuplicateRoom,
			expectedErr: NewConflictError(),
		},
		{
			name:        "fails with db error",
			userId:      1,
			body:        CreateRoomRequest{Code: "abc123", Name: "Team"},
			mockErr:     errors.New("db error"),
			expectedErr: NewInternalServerError(nil),
		},
	}

	for _, tc := range tcases {
		t.Run(tc.name, func(t *testing.T) {
			mockRepo := &database.MockChatrixRepository{}
			defer mockRepo.AssertExpectations(t)

			if tc.mockRoom != (database.Room{}) || tc.mockErr != nil {
				mockRepo.On("CreateRoom", database.CreateRoomParams{
					Code:    "abc123",
					Name:    "Team",
					OwnerId: tc.userId,
				}).Return(tc.mockRoom, tc.mockErr).Once()
			}

			app := newTestApp(t, mockRepo, nil)

			var req *http.Request
			switch v := tc.body.(type) {
			case string:
				req = httptest.NewRequest(http.MethodPost, "/api/rooms", strings.NewReader(v))
			case CreateRoomRequest:
				body, err := json.Marshal(v)
				assert.NoError(t, err, "failed to marshal request body")
				req = httptest.NewRequest(http.MethodPost, "/api/rooms", bytes.NewBuffer(body))
			default:
				t.Fatalf("unsupported request body type: %T", v)
			}

			if tc.userId > 0 {
				req = req.WithContext(WithUserId(req.Context(), tc.userId))
			}

			rr := httptest.NewRecorder()
			app.createRoom(rr, req)

			if tc.expectedErr != nil {
				assertApiError(t, rr, tc.expectedErr)
				return
			}

			assert.Equal(t, http.StatusCreated, rr.Code)

			var room types.Room
			err := json.NewDecoder(rr.Body).Decode(&room)
			assert.NoError(t, err, "failed to decode response")
			assert.Equal(t, tc.mockRoom.Code, room.Code)
			assert.Equal(t, tc.mockRoom.Name, room.Name)
			assert.Equal(t, tc.mockRoom.OwnerId, room.OwnerId)
		})
	}

	t.Run("generates a code when none supplied", func(t *testing.T) {
		mockRepo := &database.MockChatrixRepository{}
		defer mockRepo.AssertExpectations(t)

		mockRepo.On("CreateRoom", database.CreateRoomParams{
			Code:    "gen123",
			Name:    "Team",
			OwnerId: 1,
		}).Return(database.Room{Id: 2, Code: "gen123", Name: "Team", OwnerId: 1}, nil).Once()

		app := newTestApp(t, mockRepo, nil)
		app.generateShortId = func() (string, error) { return "gen123", nil }

		body, err := json.Marshal(CreateRoomRequest{Name: "Team"})
		assert.NoError(t, err)

		req := httptest.NewRequest(http.MethodPost, "/api/rooms", bytes.NewBuffer(body))
		req = req.WithContext(WithUserId(req.Context(), 1))

		rr := httptest.NewRecorder()
		app.createRoom(rr, req)

		assert.Equal(t, http.StatusCreated, rr.Code)

		var room types.Room
		err = json.NewDecoder(rr.Body).Decode(&room)
		assert.NoError(t, err)
		assert.Equal(t, "gen123", room.Code)
	})

	t.Run("fails when code generation fails", func(t *testing.T) {
		app := newTestApp(t, &database.MockChatrixRepository{}, nil)
		app.generateShortId = func() (string, error) { return "", errors.New("exhausted") }

		body, err := json.Marshal(CreateRoomRequest{Name: "Team"})
		assert.NoError(t, err)

		req := httptest.NewRequest(http.MethodPost, "/api/rooms", bytes.NewBuffer(body))
		req = req.WithContext(WithUserId(req.Context(), 1))

		rr := httptest.NewRecorder()
		app.createRoom(rr, req)

		assertApiError(t, rr, NewInternalServerError(nil))
	})
}

func Test_listRooms(t *testing.T) {
	tcases := []struct {
		name        string
		userId      int
		mockRooms   []database.Room
		mockErr     error
		expectedErr *ApiError
	}{
		{
			name:   "lists accessible rooms",
			userId: 1,
			mockRooms: []database.Room{
				{Id: 1, Code: "abc123", Name: "Team", OwnerId: 1},
				{Id: 2, Code: "def456", Name: "Support", OwnerId: 2},
			},
		},
		{
			name:      "empty list for a fresh account",
			userId:    1,
			mockRooms: []database.Room{},
		},
		{
			name:        "fails without authenticated user",
			userId:      0,
			expectedErr: NewUnauthorizedError(),
		},
		{
			name:        "fails with db error",
			userId:      1,
			mockErr:     errors.New("db error"),
			expectedErr: NewInternalServerError(nil),
		},
	}

	for _, tc := range tcases {
		t.Run(tc.name, func(t *testing.T) {
			mockRepo := &database.MockChatrixRepository{}
			defer mockRepo.AssertExpectations(t)

			if tc.mockRooms != nil || tc.mockErr != nil {
				mockRepo.On("ListAccessibleRooms", tc.userId).Return(tc.mockRooms, tc.mockErr).Once()
			}

			app := newTestApp(t, mockRepo, nil)

			req := httptest.NewRequest(http.MethodGet, "/api/rooms", nil)
			if tc.userId > 0 {
				req = req.WithContext(WithUserId(req.Context(), tc.userId))
			}

			rr := httptest.NewRecorder()
			app.listRooms(rr, req)

			if tc.expectedErr != nil {
				assertApiError(t, rr, tc.expectedErr)
				return
			}

			assert.Equal(t, http.StatusOK, rr.Code)

			var rooms []types.Room
			err := json.NewDecoder(rr.Body).Decode(&rooms)
			assert.NoError(t, err, "failed to decode response")
			assert.Len(t, rooms, len(tc.mockRooms))
			for i, room := range rooms {
				assert.Equal(t, tc.mockRooms[i].Code, room.Code)
				assert.Equal(t, tc.mockRooms[i].Name, room.Name)
			}
		})
	}
}

func Test_deleteRoom(t *testing.T) {
	mockRoom := database.Room{Id: 1, Code: "abc123", Name: "Team", OwnerId: 1}

	t.Run("owner deletes room", func(t *testing.T) {
		mockRepo := &database.MockChatrixRepository{}
		defer mockRepo.AssertExpectations(t)

		mockRepo.On("GetRoomByCode", "abc123").Return(mockRoom, nil).Once()
		mockRepo.On("DeleteRoom", 1).Return(nil).Once()

		cs := newRunningChatServer(t, mockRepo)
		app := newTestApp(t, mockRepo, cs)

		req := httptest.NewRequest(http.MethodDelete, "/api/rooms?code=abc123", nil)
		req = req.WithContext(WithUserId(req.Context(), 1))

		rr := httptest.NewRecorder()
		app.deleteRoom(rr, req)

		assert.Equal(t, http.StatusNoContent, rr.Code)
	})

	t.Run("non-owner is forbidden", func(t *testing.T) {
		mockRepo := &database.MockChatrixRepository{}
		defer mockRepo.AssertExpectations(t)

		mockRepo.On("GetRoomByCode", "abc123").Return(mockRoom, nil).Once()

		app := newTestApp(t, mockRepo, nil)

		req := httptest.NewRequest(http.MethodDelete, "/api/rooms?code=abc123", nil)
		req = req.WithContext(WithUserId(req.Context(), 2))

		rr := httptest.NewRecorder()
		app.deleteRoom(rr, req)

		assertApiError(t, rr, NewForbiddenError())
	})

	t.Run("unknown room", func(t *testing.T) {
		mockRepo := &database.MockChatrixRepository{}
		defer mockRepo.AssertExpectations(t)

		mockRepo.On("GetRoomByCode", "nope").Return(database.Room{}, sql.ErrNoRows).Once()

		app := newTestApp(t, mockRepo, nil)

		req := httptest.NewRequest(http.MethodDelete, "/api/rooms?code=nope", nil)
		req = req.WithContext(WithUserId(req.Context(), 1))

		rr := httptest.NewRecorder()
		app.deleteRoom(rr, req)

		assertApiError(t, rr, NewNotFoundError())
	})

	t.Run("missing code", func(t *testing.T) {
		app := newTestApp(t, &database.MockChatrixRepository{}, nil)

		req := httptest.NewRequest(http.MethodDelete, "/api/rooms", nil)
		req = req.WithContext(WithUserId(req.Context(), 1))

		rr := httptest.NewRecorder()
		app.deleteRoom(rr, req)

		assertApiError(t, rr, NewBadRequestError())
	})

	t.Run("unauthenticated", func(t *testing.T) {
		app := newTestApp(t, &database.MockChatrixRepository{}, nil)

		rr := httptest.NewRecorder()
		app.deleteRoom(rr, httptest.NewRequest(http.MethodDelete, "/api/rooms?code=abc123", nil))

		assertApiError(t, rr, NewUnauthorizedError())
	})
}

func Test_joinRoom(t *testing.T) {
	mockRoom := database.Room{Id: 1, Code: "abc123", Name: "Team", OwnerId: 1}

	tcases := []struct {
		name        string
		userId      int
		body        any
		mockRoom    database.Room
		mockRoomErr error
		mockJoinErr error
		expectJoin  bool
		expectedErr *ApiError
	}{
		{
			name:       "joins a room",
			userId:     2,
			body:       JoinRoomRequest{Code: "abc123"},
			mockRoom:   mockRoom,
			expectJoin: true,
		},
		{
			name:       "joining again is a no-op",
			userId:     1,
			body:       JoinRoomRequest{Code: "abc123"},
			mockRoom:   mockRoom,
			expectJoin: true,
		},
		{
			name:        "fails without authenticated user",
			userId:      0,
			body:        JoinRoomRequest{Code: "abc123"},
			expectedErr: NewUnauthorizedError(),
		},
		{
			name:        "fails with missing code",
			userId:      2,
			body:        JoinRoomRequest{},
			expectedErr: NewBadRequestError(),
		},
		{
			name:        "fails with invalid json body",
			userId:      2,
			body:        "invalid json",
			expectedErr: NewBadRequestError(),
		},
		{
			name:        "fails with unknown room",
			userId:      2,
			body:        JoinRoomRequest{Code: "nope"},
			mockRoomErr: sql.ErrNoRows,
			expectedErr: NewNotFoundError(),
		},
		{
			name:        "fails with db error on membership insert",
			userId:      2,
			body:        JoinRoomRequest{Code: "abc123"},
			mockRoom:    mockRoom,
			mockJoinErr: errors.New("db error"),
			expectJoin:  true,
			expectedErr: NewInternalServerError(nil),
		},
	}

	for _, tc := range tcases {
		t.Run(tc.name, func(t *testing.T) {
			mockRepo := &database.MockChatrixRepository{}
			defer mockRepo.AssertExpectations(t)

			if tc.mockRoom != (database.Room{}) || tc.mockRoomErr != nil {
				if joinReq, ok := tc.body.(JoinRoomRequest); ok {
					mockRepo.On("GetRoomByCode", joinReq.Code).Return(tc.mockRoom, tc.mockRoomErr).Once()
				}
			}
			if tc.expectJoin {
				mockRepo.On("AddRoomMember", tc.mockRoom.Id, tc.userId).Return(tc.mockJoinErr).Once()
			}

			app := newTestApp(t, mockRepo, nil)

			var req *http.Request
			switch v := tc.body.(type) {
			case string:
				req = httptest.NewRequest(http.MethodPost, "/api/rooms/join", strings.NewReader(v))
			case JoinRoomRequest:
				body, err := json.Marshal(v)
				assert.NoError(t, err, "failed to marshal request body")
				req = httptest.NewRequest(http.MethodPost, "/api/rooms/join", bytes.NewBuffer(body))
			default:
				t.Fatalf("unsupported request body type: %T", v)
			}

			if tc.userId > 0 {
				req = req.WithContext(WithUserId(req.Context(), tc.userId))
			}

			rr := httptest.NewRecorder()
			app.joinRoom(rr, req)

			if tc.expectedErr != nil {
				assertApiError(t, rr, tc.expectedErr)
				return
			}

			assert.Equal(t, http.StatusOK, rr.Code)
		})
	}
}

func Test_validateRoom(t *testing.T) {
	tcases := []struct {
		name        string
		code        string
		mockRoom    database.Room
		mockErr     error
		expectedErr *ApiError
	}{
		{
			name:     "existing room is accessible",
			code:     "abc123",
			mockRoom: database.Room{Id: 1, Code: "abc123", Name: "Team", OwnerId: 1},
		},
		{
			name:        "unknown room",
			code:        "nope",
			mockErr:     sql.ErrNoRows,
			expectedErr: NewNotFoundError(),
		},
		{
			name:        "missing code",
			code:        "",
			expectedErr: NewBadRequestError(),
		},
		{
			name:        "db error",
			code:        "abc123",
			mockErr:     errors.New("db error"),
			expectedErr: NewInternalServerError(nil),
		},
	}

	for _, tc := range tcases {
		t.Run(tc.name, func(t *testing.T) {
			mockRepo := &database.MockChatrixRepository{}
			defer mockRepo.AssertExpectations(t)

			if tc.code != "" {
				mockRepo.On("GetRoomByCode", tc.code).Return(tc.mockRoom, tc.mockErr).Once()
			}

			app := newTestApp(t, mockRepo, nil)

			req := httptest.NewRequest(http.MethodGet, "/api/rooms/validate?code="+tc.code, nil)
			req = req.WithContext(WithUserId(req.Context(), 1))

			rr := httptest.NewRecorder()
			app.validateRoom(rr, req)

			if tc.expectedErr != nil {
				assertApiError(t, rr, tc.expectedErr)
				return
			}

			assert.Equal(t, http.StatusOK, rr.Code)
		})
	}
}

func Test_postMessage(t *testing.T) {
	mockUser := database.User{Id: 1, Username: "testuser"}
	mockRoom := database.Room{Id: 1, Code: "abc123", Name: "Team", OwnerId: 1}

	t.Run("stores and fans out a message", func(t *testing.T) {
		mockRepo := &database.MockChatrixRepository{}
		defer mockRepo.AssertExpectations(t)

		mockRepo.On("GetAccountById", 1).Return(mockUser, nil).Once()
		mockRepo.On("GetRoomByCode", "abc123").Return(mockRoom, nil).Once()
		mockRepo.On("CreateMessage", mock.MatchedBy(func(m database.Message) bool {
			return m.SeqId == 1 && m.Author == "testuser" && m.Content == "hello"
		})).Return(database.Message{
			Id:      1,
			SeqId:   1,
			RoomId:  1,
			Author:  "testuser",
			Content: "hello",
		}, nil).Once()

		cs := newRunningChatServer(t, mockRepo)
		app := newTestApp(t, mockRepo, cs)

		body, err := json.Marshal(PostMessageRequest{Code: "abc123", Content: "hello"})
		assert.NoError(t, err)

		req := httptest.NewRequest(http.MethodPost, "/api/messages", bytes.NewBuffer(body))
		req = req.WithContext(WithUserId(req.Context(), 1))

		rr := httptest.NewRecorder()
		app.postMessage(rr, req)

		assert.Equal(t, http.StatusOK, rr.Code)

		var resp map[string]any
		err = json.NewDecoder(rr.Body).Decode(&resp)
		assert.NoError(t, err, "failed to decode response")
		assert.Equal(t, true, resp["success"])
	})

	t.Run("unknown room", func(t *testing.T) {
		mockRepo := &database.MockChatrixRepository{}
		defer mockRepo.AssertExpectations(t)

		mockRepo.On("GetAccountById", 1).Return(mockUser, nil).Once()
		mockRepo.On("GetRoomByCode", "nope").Return(database.Room{}, sql.ErrNoRows).Once()

		cs := newRunningChatServer(t, mockRepo)
		app := newTestApp(t, mockRepo, cs)

		body, err := json.Marshal(PostMessageRequest{Code: "nope", Content: "hello"})
		assert.NoError(t, err)

		req := httptest.NewRequest(http.MethodPost, "/api/messages", bytes.NewBuffer(body))
		req = req.WithContext(WithUserId(req.Context(), 1))

		rr := httptest.NewRecorder()
		app.postMessage(rr, req)

		assertApiError(t, rr, NewNotFoundError())
	})

	t.Run("missing content", func(t *testing.T) {
		app := newTestApp(t, &database.MockChatrixRepository{}, nil)

		body, err := json.Marshal(PostMessageRequest{Code: "abc123"})
		assert.NoError(t, err)

		req := httptest.NewRequest(http.MethodPost, "/api/messages", bytes.NewBuffer(body))
		req = req.WithContext(WithUserId(req.Context(), 1))

		rr := httptest.NewRecorder()
		app.postMessage(rr, req)

		assertApiError(t, rr, NewBadRequestError())
	})

	t.Run("stale session", func(t *testing.T) {
		mockRepo := &database.MockChatrixRepository{}
		defer mockRepo.AssertExpectations(t)

		mockRepo.On("GetAccountById", 1).Return(database.User{}, sql.ErrNoRows).Once()

		app := newTestApp(t, mockRepo, nil)

		body, err := json.Marshal(PostMessageRequest{Code: "abc123", Content: "hello"})
		assert.NoError(t, err)

		req := httptest.NewRequest(http.MethodPost, "/api/messages", bytes.NewBuffer(body))
		req = req.WithContext(WithUserId(req.Context(), 1))

		rr := httptest.NewRecorder()
		app.postMessage(rr, req)

		assertApiError(t, rr, NewUnauthorizedError())
	})

	t.Run("unauthenticated", func(t *testing.T) {
		app := newTestApp(t, &database.MockChatrixRepository{}, nil)

		rr := httptest.NewRecorder()
		app.postMessage(rr, httptest.NewRequest(http.MethodPost, "/api/messages", strings.NewReader("{}")))

		assertApiError(t, rr, NewUnauthorizedError())
	})
}

func Test_getMessages(t *testing.T) {
	now := time.Now().UTC().Round(time.Millisecond)
	mockRoom := database.Room{Id: 1, Code: "abc123", Name: "Team", OwnerId: 1, SeqId: 2}

	t.Run("returns history in sequence order", func(t *testing.T) {
		mockRepo := &database.MockChatrixRepository{}
		defer mockRepo.AssertExpectations(t)

		mockRepo.On("GetRoomByCode", "abc123").Return(mockRoom, nil).Once()
		mockRepo.On("ListMessages", 1).Return([]database.Message{
			{Id: 1, SeqId: 1, RoomId: 1, Author: "u1", Content: "first", CreatedAt: now},
			{
				Id: 2, SeqId: 2, RoomId: 1, Author: "u2", Content: "/help",
				AssistantReply: sql.NullString{String: "sure", Valid: true},
				CreatedAt:      now,
			},
		}, nil).Once()

		app := newTestApp(t, mockRepo, nil)

		req := httptest.NewRequest(http.MethodGet, "/api/messages?code=abc123", nil)
		req = req.WithContext(WithUserId(req.Context(), 1))

		rr := httptest.NewRecorder()
		app.getMessages(rr, req)

		assert.Equal(t, http.StatusOK, rr.Code)

		var messages []types.Message
		err := json.NewDecoder(rr.Body).Decode(&messages)
		assert.NoError(t, err, "failed to decode response")
		assert.Len(t, messages, 2)
		assert.Equal(t, 1, messages[0].SeqId)
		assert.Equal(t, "first", messages[0].Content)
		assert.Empty(t, messages[0].AssistantReply)
		assert.Equal(t, 2, messages[1].SeqId)
		assert.Equal(t, "sure", messages[1].AssistantReply)
		assert.Equal(t, "abc123", messages[1].RoomCode)
	})

	t.Run("unknown room has empty history", func(t *testing.T) {
		mockRepo := &database.MockChatrixRepository{}
		defer mockRepo.AssertExpectations(t)

		mockRepo.On("GetRoomByCode", "nope").Return(database.Room{}, sql.ErrNoRows).Once()

		app := newTestApp(t, mockRepo, nil)

		req := httptest.NewRequest(http.MethodGet, "/api/messages?code=nope", nil)
		req = req.WithContext(WithUserId(req.Context(), 1))

		rr := httptest.NewRecorder()
		app.getMessages(rr, req)

		assert.Equal(t, http.StatusOK, rr.Code)

		var messages []types.Message
		err := json.NewDecoder(rr.Body).Decode(&messages)
		assert.NoError(t, err, "failed to decode response")
		assert.Empty(t, messages)
	})

	t.Run("missing code", func(t *testing.T) {
		app := newTestApp(t, &database.MockChatrixRepository{}, nil)

		req := httptest.NewRequest(http.MethodGet, "/api/messages", nil)
		req = req.WithContext(WithUserId(req.Context(), 1))

		rr := httptest.NewRecorder()
		app.getMessages(rr, req)

		assertApiError(t, rr, NewBadRequestError())
	})
}

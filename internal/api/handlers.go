package api

import (
	"database/sql"
	"encoding/json"
	"errors"
	"net/http"
	"slices"

	"github.com/chatrix/chatrix/internal/database"
	"github.com/chatrix/chatrix/internal/server"
	"github.com/chatrix/chatrix/internal/types"
	"github.com/gorilla/websocket"
)

type CreateRoomRequest struct {
	Code string `json:"code"`
	Name string `json:"name"`
}

type JoinRoomRequest struct {
	Code string `json:"code"`
}

type PostMessageRequest struct {
	Code    string `json:"code"`
	Content string `json:"content"`
}

func (s *ChatrixApp) writeJson(w http.ResponseWriter, statusCode int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if v == nil {
		return
	}

	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.log.Printf("json encode: %v", err)
	}
}

func roomResponse(room database.Room) types.Room {
	return types.Room{
		Id:        room.Id,
		Code:      room.Code,
		Name:      room.Name,
		OwnerId:   room.OwnerId,
		SeqId:     room.SeqId,
		CreatedAt: room.CreatedAt,
		UpdatedAt: room.UpdatedAt,
	}
}

func (s *ChatrixApp) createRoom(w http.ResponseWriter, r *http.Request) {
	var createRoomReq CreateRoomRequest
	if err := json.NewDecoder(r.Body).Decode(&createRoomReq); err != nil {
		errResp := NewBadRequestError()
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	userId, ok := UserId(r.Context())
	if !ok {
		errResp := NewUnauthorizedError()
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	if createRoomReq.Name == "" {
		errResp := NewBadRequestError()
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	code := createRoomReq.Code
	if code == "" {
		var err error
		code, err = s.generateShortId()
		if err != nil {
			s.log.Print("generateShortId:", err)
			errResp := NewInternalServerError(err)
			s.writeJson(w, errResp.StatusCode, errResp)
			return
		}
	}

	newRoom, err := s.db.CreateRoom(database.CreateRoomParams{
		Code:    code,
		Name:    createRoomReq.Name,
		OwnerId: userId,
	})
	if err != nil {
		var errResp *ApiError
		if errors.Is(err, database.ErrDuplicateRoom) {
			errResp = NewConflictError()
		} else {
			errResp = NewInternalServerError(err)
		}
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	s.writeJson(w, http.StatusCreated, roomResponse(newRoom))
}

func (s *ChatrixApp) listRooms(w http.ResponseWriter, r *http.Request) {
	userId, ok := UserId(r.Context())
	if !ok {
		errResp := NewUnauthorizedError()
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	dbRooms, err := s.db.ListAccessibleRooms(userId)
	if err != nil {
		s.log.Println("list rooms:", err)
		errResp := NewInternalServerError(err)
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	rooms := make([]types.Room, 0, len(dbRooms))
	for _, room := range dbRooms {
		rooms = append(rooms, roomResponse(room))
	}

	s.writeJson(w, http.StatusOK, rooms)
}

func (s *ChatrixApp) deleteRoom(w http.ResponseWriter, r *http.Request) {
	userId, ok := UserId(r.Context())
	if !ok {
		errResp := NewUnauthorizedError()
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	code := r.URL.Query().Get("code")
	if code == "" {
		errResp := NewBadRequestError()
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	room, err := s.db.GetRoomByCode(code)
	if err != nil {
		var errResp *ApiError
		if errors.Is(err, sql.ErrNoRows) {
			errResp = NewNotFoundError()
		} else {
			errResp = NewInternalServerError(err)
		}
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	// only the creator may delete a room
	if room.OwnerId != userId {
		errResp := NewForbiddenError()
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	if err := s.db.DeleteRoom(room.Id); err != nil {
		s.log.Println("delete room:", err)
		errResp := NewInternalServerError(err)
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	if err := s.cs.UnloadRoom(r.Context(), room.Code, true); err != nil {
		s.log.Println("delete room from chat server:", err)
		errResp := NewInternalServerError(err)
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	s.writeJson(w, http.StatusNoContent, nil)
}

func (s *ChatrixApp) joinRoom(w http.ResponseWriter, r *http.Request) {
	userId, ok := UserId(r.Context())
	if !ok {
		errResp := NewUnauthorizedError()
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	var joinReq JoinRoomRequest
	if err := json.NewDecoder(r.Body).Decode(&joinReq); err != nil || joinReq.Code == "" {
		errResp := NewBadRequestError()
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	room, err := s.db.GetRoomByCode(joinReq.Code)
	if err != nil {
		var errResp *ApiError
		if errors.Is(err, sql.ErrNoRows) {
			errResp = NewNotFoundError()
		} else {
			errResp = NewInternalServerError(err)
		}
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	// set-add semantics: joining twice is a no-op
	if err := s.db.AddRoomMember(room.Id, userId); err != nil {
		s.log.Println("join room:", err)
		errResp := NewInternalServerError(err)
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	s.writeJson(w, http.StatusOK, map[string]any{"message": "successfully joined the room"})
}

func (s *ChatrixApp) validateRoom(w http.ResponseWriter, r *http.Request) {
	code := r.URL.Query().Get("code")
	if code == "" {
		errResp := NewBadRequestError()
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	// access requires a valid credential and an existing room code, nothing
	// more: rooms are unlisted, not access-controlled
	_, err := s.db.GetRoomByCode(code)
	if err != nil {
		var errResp *ApiError
		if errors.Is(err, sql.ErrNoRows) {
			errResp = NewNotFoundError()
		} else {
			errResp = NewInternalServerError(err)
		}
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	s.writeJson(w, http.StatusOK, map[string]any{"message": "access granted"})
}

func (s *ChatrixApp) postMessage(w http.ResponseWriter, r *http.Request) {
	userId, ok := UserId(r.Context())
	if !ok {
		errResp := NewUnauthorizedError()
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	var postReq PostMessageRequest
	if err := json.NewDecoder(r.Body).Decode(&postReq); err != nil {
		errResp := NewBadRequestError()
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	if postReq.Code == "" || postReq.Content == "" {
		errResp := NewBadRequestError()
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	user, err := s.db.GetAccountById(userId)
	if err != nil {
		var errResp *ApiError
		if errors.Is(err, sql.ErrNoRows) {
			errResp = NewUnauthorizedError()
		} else {
			errResp = NewInternalServerError(err)
		}
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	_, err = s.cs.PostMessage(postReq.Code, types.User{
		Id:       user.Id,
		Username: user.Username,
	}, postReq.Content)
	if err != nil {
		var errResp *ApiError
		switch {
		case errors.Is(err, server.ErrUnknownRoom):
			errResp = NewNotFoundError()
		case errors.Is(err, server.ErrUnavailable):
			errResp = NewServiceUnavailableError()
		default:
			errResp = NewInternalServerError(err)
		}
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	// the message itself arrives on the live feed, not in this response
	s.writeJson(w, http.StatusOK, map[string]any{"success": true})
}

func (s *ChatrixApp) getMessages(w http.ResponseWriter, r *http.Request) {
	code := r.URL.Query().Get("code")
	if code == "" {
		errResp := NewBadRequestError()
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	room, err := s.db.GetRoomByCode(code)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			// unknown or deleted room: history is simply empty
			s.writeJson(w, http.StatusOK, []types.Message{})
			return
		}
		errResp := NewInternalServerError(err)
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	messages, err := s.db.ListMessages(room.Id)
	if err != nil {
		errResp := NewInternalServerError(err)
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	userMessages := make([]types.Message, 0, len(messages))
	for _, msg := range messages {
		userMessages = append(userMessages, types.Message{
			Id:             msg.Id,
			SeqId:          msg.SeqId,
			RoomCode:       room.Code,
			Author:         msg.Author,
			Content:        msg.Content,
			AssistantReply: msg.AssistantReply.String,
			Timestamp:      msg.CreatedAt,
		})
	}

	s.writeJson(w, http.StatusOK, userMessages)
}

func (s *ChatrixApp) serveWs(w http.ResponseWriter, r *http.Request) {
	id, ok := UserId(r.Context())
	if !ok {
		errResp := NewUnauthorizedError()
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	user, err := s.db.GetAccountById(id)
	if err != nil {
		var errResp *ApiError
		if errors.Is(err, sql.ErrNoRows) {
			errResp = NewNotFoundError()
		} else {
			errResp = NewInternalServerError(err)
		}
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	upgrader := websocket.Upgrader{
		CheckOrigin: func(r *http.Request) bool {
			origin := r.Header.Get("Origin")
			if origin == "" {
				return true
			}

			return slices.Contains(s.allowedOrigins, origin)
		},
	}
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.log.Println("error upgrading connection:", err)
		return
	}

	client := server.NewClient(types.User{
		Id:       user.Id,
		Username: user.Username,
	}, conn, s.cs, s.log)

	s.cs.RegisterClient(client)
	go client.Write()
	go client.Read()
}

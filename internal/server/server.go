package server

import (
	"context"
	"database/sql"
	"errors"
	"log"
	"sync"
	"time"

	"github.com/chatrix/chatrix/internal/assistant"
	"github.com/chatrix/chatrix/internal/database"
	"github.com/chatrix/chatrix/internal/stats"
	"github.com/chatrix/chatrix/internal/types"
)

var (
	// ErrUnknownRoom is returned when a room code does not resolve to a room.
	ErrUnknownRoom = errors.New("unknown room")
	// ErrUnavailable is returned when a room's publish queue is full.
	ErrUnavailable = errors.New("service unavailable")
)

type postRequest struct {
	roomCode string
	author   types.User
	content  string
	result   chan postResult
}

type postResult struct {
	message *types.Message
	err     error
}

type unloadRoomRequest struct {
	roomCode string
	deleted  bool
	done     chan struct{}
}

type ChatServer struct {
	log              *log.Logger
	db               database.ChatrixRepository
	replies          assistant.ReplyGenerator
	stats            stats.StatsProvider
	assistantTimeout time.Duration
	clients          map[*Client]struct{}
	clientsLock      sync.Mutex
	joinChan         chan *ClientMessage
	postChan         chan *postRequest
	registerChan     chan *Client
	deRegisterChan   chan *Client
	unloadRoomChan   chan unloadRoomRequest
	rooms            map[string]*Room
	stop             chan struct{}
	done             chan struct{}
}

// NewChatServer creates the hub coordinator. replies may be nil, in which case
// messages are stored without assistant enrichment.
func NewChatServer(logger *log.Logger, db database.ChatrixRepository, replies assistant.ReplyGenerator, sp stats.StatsProvider, assistantTimeout time.Duration) (*ChatServer, error) {
	return &ChatServer{
		log:              logger,
		db:               db,
		replies:          replies,
		stats:            sp,
		assistantTimeout: assistantTimeout,
		clients:          make(map[*Client]struct{}),
		joinChan:         make(chan *ClientMessage, 256),
		postChan:         make(chan *postRequest, 256),
		registerChan:     make(chan *Client),
		deRegisterChan:   make(chan *Client),
		unloadRoomChan:   make(chan unloadRoomRequest, 64),
		rooms:            make(map[string]*Room),
		stop:             make(chan struct{}),
		done:             make(chan struct{}),
	}, nil
}

func (cs *ChatServer) Run() {
	for {
		select {
		case joinMsg := <-cs.joinChan:
			room, err := cs.getOrLoadRoom(joinMsg.Join.RoomCode)
			if err != nil {
				joinMsg.client.queueMessage(ErrRoomNotFound(joinMsg.Id))
				continue
			}

			select {
			case room.joinChan <- joinMsg:
			default:
				cs.log.Printf("join channel full on room %q", room.code)
				joinMsg.client.queueMessage(ErrServiceUnavailable(joinMsg.Id))
			}
		case req := <-cs.postChan:
			room, err := cs.getOrLoadRoom(req.roomCode)
			if err != nil {
				req.result <- postResult{err: err}
				continue
			}

			select {
			case room.publishChan <- req:
			default:
				cs.log.Printf("publish channel full on room %q", room.code)
				req.result <- postResult{err: ErrUnavailable}
			}
		case client := <-cs.registerChan:
			cs.log.Printf("adding connection from %q", client.user.Username)
			cs.addClient(client)
		case client := <-cs.deRegisterChan:
			cs.log.Printf("removing connection from %q", client.user.Username)
			cs.removeClient(client)
		case req := <-cs.unloadRoomChan:
			if r, ok := cs.rooms[req.roomCode]; ok {
				cs.unloadRoom(req.roomCode)
				r.exit <- exitReq{deleted: req.deleted}
				<-r.done
			}
			if req.done != nil {
				close(req.done)
			}
		case <-cs.stop:
			cs.log.Println("shutting down rooms")
			for _, r := range cs.rooms {
				close(r.exit)
				<-r.done
			}

			close(cs.done)
			return
		}
	}
}

// getOrLoadRoom returns the live actor for a room, loading it from the
// directory on first use. Only called from the coordinator goroutine.
func (cs *ChatServer) getOrLoadRoom(code string) (*Room, error) {
	if room, ok := cs.rooms[code]; ok {
		return room, nil
	}

	dbRoom, err := cs.db.GetRoomByCode(code)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrUnknownRoom
		}
		return nil, err
	}

	room := &Room{
		id:          dbRoom.Id,
		code:        dbRoom.Code,
		name:        dbRoom.Name,
		ownerId:     dbRoom.OwnerId,
		seq:         dbRoom.SeqId,
		cs:          cs,
		joinChan:    make(chan *ClientMessage, 256),
		leaveChan:   make(chan *ClientMessage, 256),
		publishChan: make(chan *postRequest, 256),
		clients:     make(map[*Client]struct{}),
		log:         cs.log,
		exit:        make(chan exitReq),
		done:        make(chan struct{}),
	}

	cs.rooms[room.code] = room
	cs.stats.Incr(stats.ActiveRooms)
	go room.start()

	return room, nil
}

// PostMessage routes a message through the room's actor: assistant enrichment,
// append with the next sequence number, then fanout to live subscribers. It
// blocks until the message is durable or rejected.
func (cs *ChatServer) PostMessage(roomCode string, author types.User, content string) (*types.Message, error) {
	req := &postRequest{
		roomCode: roomCode,
		author:   author,
		content:  content,
		result:   make(chan postResult, 1),
	}

	select {
	case cs.postChan <- req:
	case <-cs.stop:
		return nil, ErrUnavailable
	}

	select {
	case res := <-req.result:
		return res.message, res.err
	case <-cs.done:
		return nil, ErrUnavailable
	}
}

// UnloadRoom tears down a room's live actor. With deleted set, subscribers are
// notified the room is gone before teardown.
func (cs *ChatServer) UnloadRoom(ctx context.Context, roomCode string, deleted bool) error {
	done := make(chan struct{})
	select {
	case cs.unloadRoomChan <- unloadRoomRequest{roomCode: roomCode, deleted: deleted, done: done}:
	case <-ctx.Done():
		return ctx.Err()
	case <-cs.stop:
		return ErrUnavailable
	}

	select {
	case <-done:
	case <-ctx.Done():
		return ctx.Err()
	}
	return nil
}

func (cs *ChatServer) RegisterClient(c *Client) {
	cs.registerChan <- c
}

func (cs *ChatServer) addClient(c *Client) {
	cs.clientsLock.Lock()
	defer cs.clientsLock.Unlock()
	cs.clients[c] = struct{}{}
	cs.stats.Incr(stats.ActiveConnections)
}

func (cs *ChatServer) removeClient(c *Client) {
	cs.clientsLock.Lock()
	defer cs.clientsLock.Unlock()
	if _, ok := cs.clients[c]; !ok {
		return
	}
	delete(cs.clients, c)
	cs.stats.Decr(stats.ActiveConnections)
}

func (cs *ChatServer) unloadRoom(code string) {
	if _, ok := cs.rooms[code]; ok {
		cs.log.Printf("removing room %q", code)
		delete(cs.rooms, code)
		cs.stats.Decr(stats.ActiveRooms)
	}
}

func (cs *ChatServer) Shutdown() {
	cs.log.Println("received shutdown signal")
	cs.clientsLock.Lock()
	for c := range cs.clients {
		c.stopClient()
	}
	cs.clientsLock.Unlock()

	close(cs.stop)

	<-cs.done
}

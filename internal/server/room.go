package server

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/chatrix/chatrix/internal/assistant"
	"github.com/chatrix/chatrix/internal/database"
	"github.com/chatrix/chatrix/internal/stats"
	"github.com/chatrix/chatrix/internal/types"
)

// idleRoomTimeout is how long a room actor stays loaded with no subscribers.
const idleRoomTimeout = 30 * time.Second

type exitReq struct {
	deleted bool
}

type Room struct {
	id          int
	code        string
	name        string
	ownerId     int
	seq         int
	cs          *ChatServer
	joinChan    chan *ClientMessage
	leaveChan   chan *ClientMessage
	publishChan chan *postRequest
	clients     map[*Client]struct{}
	clientLock  sync.RWMutex
	log         *log.Logger
	// killTimer unloads the room once it has been idle with no subscribers
	killTimer *time.Timer
	// exit signals the room actor to tear down
	exit chan exitReq
	done chan struct{}
}

func (r *Room) start() {
	r.log.Printf("starting room %q", r.code)
	r.killTimer = time.NewTimer(idleRoomTimeout)

	for {
		select {
		case join := <-r.joinChan:
			r.handleJoin(join)
		case leaveMsg := <-r.leaveChan:
			r.handleLeave(leaveMsg)
		case req := <-r.publishChan:
			r.handlePublish(req)
		case <-r.killTimer.C:
			r.handleRoomTimeout()
		case e := <-r.exit:
			r.handleRoomExit(e)
			return
		}
	}
}

func (r *Room) handleRoomTimeout() {
	r.log.Printf("room %q timed out", r.code)
	select {
	case r.cs.unloadRoomChan <- unloadRoomRequest{roomCode: r.code}:
	default:
		// coordinator is busy, try again later
		r.killTimer.Reset(idleRoomTimeout)
	}
}

func (r *Room) handleRoomExit(e exitReq) {
	r.log.Printf("room %q is exiting", r.code)
	if e.deleted {
		r.broadcast(&ServerMessage{
			BaseMessage: BaseMessage{
				Timestamp: Now(),
			},
			Notification: &Notification{
				RoomDeleted: &RoomDeleted{RoomCode: r.code},
			},
		})
	}

	r.clientLock.Lock()
	for c := range r.clients {
		c.delRoom(r.code)
	}
	r.clients = make(map[*Client]struct{})
	r.clientLock.Unlock()

	// fail any queued publishes so callers are not left waiting
	for {
		select {
		case req := <-r.publishChan:
			req.result <- postResult{err: ErrUnavailable}
		default:
			close(r.done)
			return
		}
	}
}

func (r *Room) handleJoin(join *ClientMessage) {
	r.killTimer.Stop()

	c := join.client
	r.addClient(c)

	members, err := r.cs.db.ListRoomMembers(r.id)
	if err != nil {
		r.log.Println("ListRoomMembers:", err)
	}

	roomInfo := types.Room{
		Id:      r.id,
		Code:    r.code,
		Name:    r.name,
		OwnerId: r.ownerId,
		SeqId:   r.seq,
		Members: func() []types.User {
			users := make([]types.User, len(members))
			for i, m := range members {
				users[i] = types.User{
					Id:       m.Id,
					Username: m.Username,
				}
			}
			return users
		}(),
	}

	c.queueMessage(NoErrOK(join.Id, roomInfo))
}

func (r *Room) handleLeave(leaveMsg *ClientMessage) {
	r.removeClient(leaveMsg.client)

	if leaveMsg.Id != 0 {
		leaveMsg.client.queueMessage(NoErrOK(leaveMsg.Id, nil))
	}
}

// handlePublish is the room's single serialization point: the assistant call,
// the sequence assignment and the fanout all happen here, in publish order.
func (r *Room) handlePublish(req *postRequest) {
	var reply string
	if r.cs.replies != nil && assistant.ShouldReply(req.content) {
		ctx, cancel := context.WithTimeout(context.Background(), r.cs.assistantTimeout)
		s, err := r.cs.replies.MaybeReply(ctx, req.content)
		cancel()
		if err != nil {
			// best-effort: the message is stored without a reply
			r.log.Printf("assistant reply for room %q: %v", r.code, err)
			r.cs.stats.Incr(stats.AssistantFailures)
		} else {
			reply = s
			r.cs.stats.Incr(stats.AssistantReplies)
		}
	}

	saved, err := r.cs.db.CreateMessage(database.Message{
		SeqId:          r.seq + 1,
		RoomId:         r.id,
		Author:         req.author.Username,
		Content:        req.content,
		AssistantReply: sql.NullString{String: reply, Valid: reply != ""},
		CreatedAt:      Now(),
	})
	if err != nil {
		r.log.Println("error saving message:", err)
		req.result <- postResult{err: fmt.Errorf("save message: %w", err)}
		return
	}

	r.seq = saved.SeqId

	msg := &types.Message{
		Id:             saved.Id,
		SeqId:          saved.SeqId,
		RoomCode:       r.code,
		Author:         saved.Author,
		Content:        saved.Content,
		AssistantReply: saved.AssistantReply.String,
		Timestamp:      saved.CreatedAt,
	}

	r.broadcast(&ServerMessage{
		BaseMessage: BaseMessage{
			Timestamp: saved.CreatedAt,
		},
		Message: msg,
	})

	r.cs.stats.Incr(stats.TotalMessages)
	req.result <- postResult{message: msg}
}

func (r *Room) addClient(c *Client) {
	r.clientLock.Lock()
	defer r.clientLock.Unlock()

	r.clients[c] = struct{}{}
	c.addRoom(r)
}

func (r *Room) removeClient(c *Client) {
	r.clientLock.Lock()
	defer r.clientLock.Unlock()

	if _, ok := r.clients[c]; !ok {
		r.log.Printf("client %q not found in room %q", c.user.Username, r.code)
		return
	}

	delete(r.clients, c)
	c.delRoom(r.code)

	if len(r.clients) == 0 {
		r.log.Printf("no clients in %q, starting kill timer", r.code)
		r.killTimer.Reset(idleRoomTimeout)
	}
}

// broadcast delivers to the current snapshot of subscribers. A client with a
// full send queue is skipped, never waited on.
func (r *Room) broadcast(msg *ServerMessage) {
	r.clientLock.RLock()
	defer r.clientLock.RUnlock()

	for client := range r.clients {
		if client == msg.SkipClient {
			continue
		}

		client.queueMessage(msg)
	}
}

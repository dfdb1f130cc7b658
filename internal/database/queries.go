package database

import (
	"time"
)

const addMemberQuery = "INSERT INTO room_members (room_id, account_id, created_at) " +
	"VALUES ($1, $2, $3) ON CONFLICT (room_id, account_id) DO NOTHING"

func (db *PgChatrixRepository) CreateAccount(params CreateAccountParams) (User, error) {
	res := db.conn.QueryRow(
		"INSERT INTO accounts (username, password_hash, created_at, updated_at) "+
			"VALUES ($1, $2, $3, $3) RETURNING id, username, created_at, updated_at",
		params.Username,
		params.PasswordHash,
		time.Now().UTC(),
	)

	var u User
	err := res.Scan(
		&u.Id,
		&u.Username,
		&u.CreatedAt,
		&u.UpdatedAt,
	)
	if isUniqueViolation(err) {
		return User{}, ErrDuplicateAccount
	}

	return u, err
}

func (db *PgChatrixRepository) GetAccountById(accountId int) (User, error) {
	row := db.conn.QueryRow(
		"SELECT id, username, created_at, updated_at FROM accounts "+
			"WHERE id = $1 LIMIT 1",
		accountId,
	)

	var user User
	err := row.Scan(
		&user.Id,
		&user.Username,
		&user.CreatedAt,
		&user.UpdatedAt,
	)

	return user, err
}

func (db *PgChatrixRepository) GetAccountByUsername(username string) (User, error) {
	row := db.conn.QueryRow(
		"SELECT id, username, password_hash, created_at, updated_at FROM accounts "+
			"WHERE username = $1 LIMIT 1",
		username,
	)

	var user User
	err := row.Scan(
		&user.Id,
		&user.Username,
		&user.PasswordHash,
		&user.CreatedAt,
		&user.UpdatedAt,
	)

	return user, err
}

// CreateRoom inserts the room and the creator's membership in a single
// transaction so a room is never visible without its creator in the roster.
func (db *PgChatrixRepository) CreateRoom(params CreateRoomParams) (Room, error) {
	tx, err := db.conn.Begin()
	if err != nil {
		return Room{}, err
	}
	defer func() {
		if err != nil {
			tx.Rollback()
		}
	}()

	res := tx.QueryRow(
		"INSERT INTO rooms (code, name, owner_id, seq_id, created_at, updated_at) "+
			"VALUES ($1, $2, $3, 0, $4, $4) RETURNING id, code, name, owner_id, seq_id, created_at, updated_at",
		params.Code,
		params.Name,
		params.OwnerId,
		time.Now().UTC(),
	)

	var room Room
	err = res.Scan(
		&room.Id,
		&room.Code,
		&room.Name,
		&room.OwnerId,
		&room.SeqId,
		&room.CreatedAt,
		&room.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return Room{}, ErrDuplicateRoom
		}
		return Room{}, err
	}

	_, err = tx.Exec(addMemberQuery, room.Id, params.OwnerId, time.Now().UTC())
	if err != nil {
		return Room{}, err
	}

	if err = tx.Commit(); err != nil {
		return Room{}, err
	}

	return room, err
}

func (db *PgChatrixRepository) GetRoomByCode(code string) (Room, error) {
	row := db.conn.QueryRow(
		"SELECT id, code, name, owner_id, seq_id, created_at, updated_at FROM rooms "+
			"WHERE code = $1 LIMIT 1",
		code,
	)

	var room Room
	err := row.Scan(
		&room.Id,
		&room.Code,
		&room.Name,
		&room.OwnerId,
		&room.SeqId,
		&room.CreatedAt,
		&room.UpdatedAt,
	)

	return room, err
}

func (db *PgChatrixRepository) ListAccessibleRooms(accountId int) ([]Room, error) {
	rows, err := db.conn.Query(
		"SELECT DISTINCT r.id, r.code, r.name, r.owner_id, r.seq_id, r.created_at, r.updated_at "+
			"FROM rooms r LEFT JOIN room_members m ON r.id = m.room_id "+
			"WHERE r.owner_id = $1 OR m.account_id = $1 ORDER BY r.id",
		accountId,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var rooms []Room
	for rows.Next() {
		var room Room
		if err = rows.Scan(
			&room.Id,
			&room.Code,
			&room.Name,
			&room.OwnerId,
			&room.SeqId,
			&room.CreatedAt,
			&room.UpdatedAt,
		); err != nil {
			break
		}

		rooms = append(rooms, room)
	}
	return rooms, err
}

func (db *PgChatrixRepository) AddRoomMember(roomId, accountId int) error {
	_, err := db.conn.Exec(addMemberQuery, roomId, accountId, time.Now().UTC())

	return err
}

func (db *PgChatrixRepository) ListRoomMembers(roomId int) ([]User, error) {
	rows, err := db.conn.Query(
		"SELECT a.id, a.username FROM room_members AS m "+
			"JOIN accounts AS a ON m.account_id = a.id WHERE m.room_id = $1 ORDER BY a.id",
		roomId,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var members = make([]User, 0)
	for rows.Next() {
		var member User
		if err = rows.Scan(&member.Id, &member.Username); err != nil {
			break
		}

		members = append(members, member)
	}

	return members, err
}

// DeleteRoom removes the room, its membership rows and its messages in one
// transaction, so readers never observe a deleted room with live history.
func (db *PgChatrixRepository) DeleteRoom(roomId int) error {
	tx, err := db.conn.Begin()
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			tx.Rollback()
		}
	}()

	_, err = tx.Exec("DELETE FROM room_members WHERE room_id = $1", roomId)
	if err != nil {
		return err
	}

	_, err = tx.Exec("DELETE FROM messages WHERE room_id = $1", roomId)
	if err != nil {
		return err
	}

	_, err = tx.Exec("DELETE FROM rooms WHERE id = $1", roomId)
	if err != nil {
		return err
	}

	return tx.Commit()
}

// CreateMessage persists the message and advances the room's sequence counter
// in the same transaction. SeqId is assigned by the caller, which owns the
// per-room serialization point.
func (db *PgChatrixRepository) CreateMessage(msg Message) (Message, error) {
	tx, err := db.conn.Begin()
	if err != nil {
		return Message{}, err
	}
	defer func() {
		if err != nil {
			tx.Rollback()
		}
	}()

	_, err = tx.Exec("UPDATE rooms SET seq_id = $1, updated_at = $2 WHERE id = $3",
		msg.SeqId, time.Now().UTC(), msg.RoomId)
	if err != nil {
		return Message{}, err
	}

	res := tx.QueryRow(
		"INSERT INTO messages (seq_id, room_id, author, content, assistant_reply, created_at) "+
			"VALUES ($1, $2, $3, $4, $5, $6) RETURNING id, seq_id, room_id, author, content, assistant_reply, created_at",
		msg.SeqId,
		msg.RoomId,
		msg.Author,
		msg.Content,
		msg.AssistantReply,
		msg.CreatedAt,
	)

	var saved Message
	err = res.Scan(
		&saved.Id,
		&saved.SeqId,
		&saved.RoomId,
		&saved.Author,
		&saved.Content,
		&saved.AssistantReply,
		&saved.CreatedAt,
	)
	if err != nil {
		return Message{}, err
	}

	if err = tx.Commit(); err != nil {
		return Message{}, err
	}

	return saved, err
}

func (db *PgChatrixRepository) ListMessages(roomId int) ([]Message, error) {
	rows, err := db.conn.Query(
		"SELECT id, seq_id, room_id, author, content, assistant_reply, created_at FROM messages "+
			"WHERE room_id = $1 ORDER BY seq_id ASC",
		roomId,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var messages = make([]Message, 0)
	for rows.Next() {
		var msg Message
		if err = rows.Scan(
			&msg.Id,
			&msg.SeqId,
			&msg.RoomId,
			&msg.Author,
			&msg.Content,
			&msg.AssistantReply,
			&msg.CreatedAt,
		); err != nil {
			break
		}

		messages = append(messages, msg)
	}
	return messages, err
}

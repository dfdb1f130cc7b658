package database

type ChatrixRepository interface {
	Ping() error
	CreateAccount(params CreateAccountParams) (User, error)
	GetAccountById(accountId int) (User, error)
	GetAccountByUsername(username string) (User, error)
	CreateRoom(params CreateRoomParams) (Room, error)
	GetRoomByCode(code string) (Room, error)
	ListAccessibleRooms(accountId int) ([]Room, error)
	AddRoomMember(roomId, accountId int) error
	ListRoomMembers(roomId int) ([]User, error)
	DeleteRoom(roomId int) error
	CreateMessage(msg Message) (Message, error)
	ListMessages(roomId int) ([]Message, error)
}

package domain

// Game client event types.
const (
	GameTypeCreateRoom  = "CreateRoom"
	GameTypeJoinRoom    = "JoinRoom"
	GameTypeLeaveRoom   = "LeaveRoom"
	GameTypeReady       = "Ready"
	GameTypeBoardUpdate = "BoardUpdate"
)

// Game server event types.
const (
	GameTypeConnected    = "Connected"
	GameTypeRoomCreated  = "RoomCreated"
	GameTypeJoinedRoom   = "JoinedRoom"
	GameTypePlayerJoined = "PlayerJoined"
	GameTypePlayerLeft   = "PlayerLeft"
	GameTypePlayerReady  = "PlayerReady"
)

// GameEvent is the inbound game envelope, discriminated by Type.
// Board rows are ints rather than bytes so the JSON stays an array of
// numbers instead of a base64 string.
type GameEvent struct {
	Type   string  `json:"type"`
	RoomID string  `json:"room_id,omitempty"`
	Ready  bool    `json:"ready,omitempty"`
	Board  [][]int `json:"board,omitempty"`
	Piece  string  `json:"piece,omitempty"`
}

// Server -> client game events.

type ConnectedEvent struct {
	Type     string `json:"type"`
	PlayerID string `json:"player_id"`
}

type RoomCreatedEvent struct {
	Type   string `json:"type"`
	RoomID string `json:"room_id"`
}

type JoinedRoomEvent struct {
	Type   string `json:"type"`
	RoomID string `json:"room_id"`
}

type PlayerJoinedEvent struct {
	Type     string `json:"type"`
	PlayerID string `json:"player_id"`
}

type PlayerLeftEvent struct {
	Type     string `json:"type"`
	PlayerID string `json:"player_id"`
}

type PlayerReadyEvent struct {
	Type     string `json:"type"`
	PlayerID string `json:"player_id"`
	Ready    bool   `json:"ready"`
}

type BoardUpdateEvent struct {
	Type     string  `json:"type"`
	PlayerID string  `json:"player_id"`
	Board    [][]int `json:"board"`
	Piece    string  `json:"piece"`
}

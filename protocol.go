package main

import "encoding/json"

// Client -> Server message types
const (
	MsgJoin              = "join"
	MsgPlayerMove        = "playerMove"
	MsgPlayerShoot       = "playerShoot"
	MsgPlayerHit         = "playerHit"
	MsgCollision         = "collision"
	MsgRequestPlayerInfo = "requestPlayerInfo"
	MsgHeartbeat         = "heartbeat"
)

// Server -> Client message types
const (
	MsgGameState         = "gameState" // sent as a binary msgpack frame
	MsgJoinError         = "joinError"
	MsgPlayerJoined      = "playerJoined"
	MsgPlayerLeft        = "playerLeft"
	MsgPlayerMoved       = "playerMoved"
	MsgPlayerShot        = "playerShot"
	MsgPlayerDamaged     = "playerDamaged"
	MsgPlayerDied        = "playerDied"
	MsgPlayerRespawned   = "playerRespawned"
	MsgCollisionOccurred = "collisionOccurred"
	MsgPlayerInfo        = "playerInfo"
	MsgHeartbeatRequest  = "heartbeatRequest"
	MsgPlayerCount       = "playerCount"
	MsgPositionAdjusted  = "positionAdjusted"
	MsgProjectileLanded  = "projectileLanded"
)

// Join rejection reasons
const (
	ReasonNameInUse   = "NameInUse"
	ReasonInvalidName = "InvalidName"
)

// Envelope wraps all outgoing messages with a type field
type Envelope struct {
	T    string      `json:"t"`
	Data interface{} `json:"d,omitempty"`
}

// InEnvelope is used for incoming messages; json.RawMessage avoids double-unmarshal
type InEnvelope struct {
	T string          `json:"t"`
	D json.RawMessage `json:"d,omitempty"`
}

// JoinMsg asks to enter the arena under a display name
type JoinMsg struct {
	Name  string `json:"name"`
	Token string `json:"token,omitempty"` // reconnect token from a previous gameState
}

// UnmarshalJSON accepts either {"name": ...} or a bare name string
func (m *JoinMsg) UnmarshalJSON(data []byte) error {
	var name string
	if err := json.Unmarshal(data, &name); err == nil {
		*m = JoinMsg{Name: name}
		return nil
	}
	type plain JoinMsg
	return json.Unmarshal(data, (*plain)(m))
}

// IslandState describes one obstacle
type IslandState struct {
	ID     int     `json:"id" msgpack:"id"`
	X      float64 `json:"x" msgpack:"x"`
	Y      float64 `json:"y" msgpack:"y"`
	Radius float64 `json:"radius" msgpack:"radius"`
	Type   int     `json:"type" msgpack:"type"` // 0 beach, 1 forest, 2 rock
}

// PlayerRecord is the full authoritative record of a session
type PlayerRecord struct {
	ID        string  `json:"id" msgpack:"id"`
	Name      string  `json:"name" msgpack:"name"`
	X         float64 `json:"x" msgpack:"x"`
	Y         float64 `json:"y" msgpack:"y"`
	Rotation  float64 `json:"rotation" msgpack:"rotation"`
	Speed     float64 `json:"speed" msgpack:"speed"`
	Health    int     `json:"health" msgpack:"health"`
	Connected bool    `json:"connected" msgpack:"connected"`
}

// ProjectileState is a server-simulated projectile in flight
type ProjectileState struct {
	ID      string  `json:"id" msgpack:"id"`
	Shooter string  `json:"shooterId" msgpack:"shooterId"`
	X       float64 `json:"x" msgpack:"x"`
	Y       float64 `json:"y" msgpack:"y"`
	Scale   float64 `json:"scale" msgpack:"scale"`
}

// GameStateMsg is the initial sync sent to a player who joined
type GameStateMsg struct {
	WorldWidth  float64                 `json:"worldWidth" msgpack:"worldWidth"`
	WorldHeight float64                 `json:"worldHeight" msgpack:"worldHeight"`
	Islands     []IslandState           `json:"islands" msgpack:"islands"`
	Players     map[string]PlayerRecord `json:"players" msgpack:"players"`
	Projectiles []ProjectileState       `json:"projectiles,omitempty" msgpack:"projectiles,omitempty"`
	SelfID      string                  `json:"selfId" msgpack:"selfId"`
	Token       string                  `json:"token,omitempty" msgpack:"token,omitempty"`
}

// JoinErrorMsg explains a rejected join
type JoinErrorMsg struct {
	Reason string `json:"reason"`
}

// PlayerJoinedMsg announces a new session
type PlayerJoinedMsg struct {
	ID     string       `json:"id"`
	Player PlayerRecord `json:"player"`
}

// PlayerLeftMsg announces a removed session
type PlayerLeftMsg struct {
	ID string `json:"id"`
}

// MoveMsg is the client-reported kinematic state
type MoveMsg struct {
	X        float64 `json:"x"`
	Y        float64 `json:"y"`
	Rotation float64 `json:"rotation"`
	Speed    float64 `json:"speed"`
}

// PlayerMovedMsg relays a move to other players
type PlayerMovedMsg struct {
	ID       string  `json:"id"`
	X        float64 `json:"x"`
	Y        float64 `json:"y"`
	Rotation float64 `json:"rotation"`
	Speed    float64 `json:"speed"`
}

// ShootMsg requests a shot from an origin toward a target point
type ShootMsg struct {
	X       float64 `json:"x"`
	Y       float64 `json:"y"`
	TargetX float64 `json:"targetX"`
	TargetY float64 `json:"targetY"`
}

// PlayerShotMsg announces an accepted shot
type PlayerShotMsg struct {
	ID      string  `json:"id"`
	X       float64 `json:"x"`
	Y       float64 `json:"y"`
	TargetX float64 `json:"targetX"`
	TargetY float64 `json:"targetY"`
}

// HitMsg reports that a projectile struck a vessel
type HitMsg struct {
	TargetID string  `json:"targetId"`
	ID       string  `json:"id,omitempty"` // older clients send the target as id
	Damage   float64 `json:"damage"`
}

// Target returns the struck vessel's id
func (m HitMsg) Target() string {
	if m.TargetID != "" {
		return m.TargetID
	}
	return m.ID
}

// PlayerDamagedMsg carries a session's health after damage
type PlayerDamagedMsg struct {
	ID     string `json:"id"`
	Health int    `json:"health"`
}

// PlayerDiedMsg announces a death
type PlayerDiedMsg struct {
	ID string `json:"id"`
}

// PlayerRespawnedMsg announces a respawn at a new position
type PlayerRespawnedMsg struct {
	ID     string  `json:"id"`
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Health int     `json:"health"`
}

// CollisionMsg is a client-detected vessel contact. It is relayed verbatim.
type CollisionMsg struct {
	ID1     string   `json:"id1"`
	ID2     string   `json:"id2"`
	Damage  float64  `json:"damage"`
	BounceX *float64 `json:"bounceX,omitempty"`
	BounceY *float64 `json:"bounceY,omitempty"`
}

// InfoRequestMsg asks for the current record of a session
type InfoRequestMsg struct {
	ID string `json:"id"`
}

// PlayerInfoMsg answers an InfoRequestMsg
type PlayerInfoMsg struct {
	ID     string       `json:"id"`
	Player PlayerRecord `json:"player"`
}

// PlayerCountMsg carries the number of active sessions
type PlayerCountMsg struct {
	Count int `json:"count"`
}

// TransitionState is an animated position change
type TransitionState struct {
	FromX      float64 `json:"fromX"`
	FromY      float64 `json:"fromY"`
	ToX        float64 `json:"toX"`
	ToY        float64 `json:"toY"`
	DurationMs int64   `json:"durationMs"`
}

// PositionAdjustedMsg tells a client its reported position was corrected
type PositionAdjustedMsg struct {
	ID         string          `json:"id"`
	Transition TransitionState `json:"transition"`
}

// ProjectileLandedMsg signals a server-simulated projectile reached its target
type ProjectileLandedMsg struct {
	ShooterID string  `json:"shooterId"`
	X         float64 `json:"x"`
	Y         float64 `json:"y"`
}

// StatusInfo is returned by /api/status
type StatusInfo struct {
	Players     int `json:"players"`
	Connections int `json:"connections"`
}

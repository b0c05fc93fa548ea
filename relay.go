package main

import (
	"context"
	"errors"
	"math"
	"math/rand/v2"
	"strconv"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"
	"github.com/vmihailenco/msgpack/v5"
)

const (
	TickRate     = 60 // relay ticks per second
	TickDuration = time.Second / TickRate

	inboxSize = 1024
)

// Broadcaster interface for sending messages to clients
type Broadcaster interface {
	SendJSON(msg interface{})
	SendBinary(data []byte)
	Close()
}

// Inbound commands, one per client message. They are only ever handled on
// the relay goroutine.
type (
	joinCmd struct {
		conn   Broadcaster
		connID string
		msg    JoinMsg
	}
	moveCmd struct {
		connID string
		msg    MoveMsg
	}
	shootCmd struct {
		connID string
		msg    ShootMsg
	}
	hitCmd struct {
		connID string
		msg    HitMsg
	}
	collisionCmd struct {
		connID string
		msg    CollisionMsg
	}
	infoCmd struct {
		connID string
		msg    InfoRequestMsg
	}
	heartbeatCmd struct {
		connID string
	}
	leaveCmd struct {
		connID string
	}
	kickCmd struct {
		name  string
		reply chan bool
	}
)

// Relay is the authoritative event router. Every session mutation and every
// timer callback runs on the goroutine executing Run.
type Relay struct {
	cfg       Config
	log       zerolog.Logger
	world     *World
	sessions  *SessionManager
	engine    *CollisionEngine
	sched     *Scheduler
	rng       *rand.Rand
	analytics *Analytics
	auth      *Auth
	metrics   *relayMetrics
	now       func() time.Time

	projectiles []*Projectile
	shotSeq     uint64

	inbox  chan any
	done   chan struct{}
	active atomic.Int64 // mirrored for readers outside the loop
}

// NewRelay wires a relay over a generated world. analytics and auth may be nil.
func NewRelay(cfg Config, world *World, rng *rand.Rand, analytics *Analytics, auth *Auth, log zerolog.Logger) *Relay {
	return &Relay{
		cfg:       cfg,
		log:       log.With().Str("component", "relay").Logger(),
		world:     world,
		sessions:  NewSessionManager(cfg.GracePeriod, cfg.HeartbeatTimeout),
		engine:    NewCollisionEngine(world, cfg.CollisionCooldown),
		sched:     NewScheduler(),
		rng:       rng,
		analytics: analytics,
		auth:      auth,
		metrics:   defaultRelayMetrics(),
		now:       time.Now,
		inbox:     make(chan any, inboxSize),
		done:      make(chan struct{}),
	}
}

// Run processes commands and timers until ctx is cancelled
func (r *Relay) Run(ctx context.Context) {
	defer close(r.done)

	ticker := time.NewTicker(TickDuration)
	defer ticker.Stop()

	last := r.now()
	r.startTimers(last)
	r.log.Info().Bool("authoritative", r.cfg.Authoritative).Int("islands", len(r.world.Islands)).Msg("relay running")

	for {
		select {
		case <-ctx.Done():
			r.log.Info().Msg("relay stopped")
			return
		case cmd := <-r.inbox:
			r.dispatch(cmd, r.now())
		case <-ticker.C:
			now := r.now()
			r.Tick(now, now.Sub(last).Seconds())
			last = now
		}
	}
}

// Submit queues a command for the relay goroutine. It returns false once the
// relay has stopped.
func (r *Relay) Submit(cmd any) bool {
	select {
	case <-r.done:
		return false
	default:
	}
	select {
	case r.inbox <- cmd:
		return true
	case <-r.done:
		return false
	}
}

// KickByName removes the session holding name and reports whether one existed
func (r *Relay) KickByName(ctx context.Context, name string) (bool, error) {
	reply := make(chan bool, 1)
	if !r.Submit(kickCmd{name: name, reply: reply}) {
		return false, errors.New("relay stopped")
	}
	select {
	case ok := <-reply:
		return ok, nil
	case <-ctx.Done():
		return false, ctx.Err()
	case <-r.done:
		return false, errors.New("relay stopped")
	}
}

// ActivePlayers returns the number of active sessions. Safe from any goroutine.
func (r *Relay) ActivePlayers() int {
	return int(r.active.Load())
}

// Dropped counts an inbound message discarded before reaching the loop
func (r *Relay) Dropped(reason string) {
	r.metrics.drop(reason)
}

func (r *Relay) dispatch(cmd any, now time.Time) {
	switch c := cmd.(type) {
	case joinCmd:
		r.Join(c.conn, c.connID, c.msg, now)
	case moveCmd:
		r.Move(c.connID, c.msg, now)
	case shootCmd:
		r.Shoot(c.connID, c.msg, now)
	case hitCmd:
		r.Hit(c.connID, c.msg, now)
	case collisionCmd:
		r.Collision(c.connID, c.msg, now)
	case infoCmd:
		r.RequestInfo(c.connID, c.msg, now)
	case heartbeatCmd:
		r.Heartbeat(c.connID, now)
	case leaveCmd:
		r.Disconnect(c.connID, now)
	case kickCmd:
		c.reply <- r.Kick(c.name, now)
	default:
		r.log.Warn().Type("cmd", cmd).Msg("unknown command")
	}
}

// startTimers schedules the recurring heartbeat request and liveness sweep
func (r *Relay) startTimers(now time.Time) {
	interval := r.cfg.HeartbeatInterval

	var heartbeat func(at time.Time)
	heartbeat = func(at time.Time) {
		r.broadcast(Envelope{T: MsgHeartbeatRequest})
		r.sched.Schedule(taskHeartbeat, at.Add(interval), heartbeat)
	}
	var sweep func(at time.Time)
	sweep = func(at time.Time) {
		r.Sweep(at)
		r.sched.Schedule(taskSweep, at.Add(2*interval), sweep)
	}
	r.sched.Schedule(taskHeartbeat, now.Add(interval), heartbeat)
	r.sched.Schedule(taskSweep, now.Add(2*interval), sweep)
}

// Tick runs due timers and, in authoritative mode, advances projectiles by dt seconds
func (r *Relay) Tick(now time.Time, dt float64) {
	r.sched.RunDue(now)
	if r.cfg.Authoritative {
		r.stepProjectiles(now, dt)
	}
}

// ---------- session lifecycle ----------

// Join admits conn under the requested name or answers with joinError
func (r *Relay) Join(conn Broadcaster, connID string, msg JoinMsg, now time.Time) {
	reclaim := !r.cfg.RequireReconnectToken || r.validToken(msg)
	res, err := r.sessions.Join(msg.Name, connID, now, reclaim)
	if err != nil {
		if errors.Is(err, ErrAlreadyJoined) {
			r.metrics.drop("already_joined")
			return
		}
		reason := ReasonNameInUse
		if errors.Is(err, ErrInvalidName) {
			reason = ReasonInvalidName
		}
		r.log.Debug().Str("conn", connID).Str("name", msg.Name).Str("reason", reason).Msg("join rejected")
		conn.SendJSON(Envelope{T: MsgJoinError, Data: JoinErrorMsg{Reason: reason}})
		return
	}
	if res.Evicted != nil {
		r.log.Info().Str("id", res.Evicted.ID).Str("name", res.Evicted.Name).Msg("grace session reclaimed")
		r.finishRemoval(res.Evicted, now)
	}

	s := res.Session
	s.client = conn
	s.X, s.Y = r.world.RandomSpawn(r.rng)

	data, err := msgpack.Marshal(r.snapshot(s.ID, r.issueToken(s)))
	if err != nil {
		r.log.Error().Err(err).Msg("encode game state")
	} else {
		conn.SendBinary(data)
	}
	r.broadcastExcept(s.ID, Envelope{T: MsgPlayerJoined, Data: PlayerJoinedMsg{ID: s.ID, Player: s.ToRecord()}})
	r.broadcastCount()
	r.analytics.Track(EvtSessionStart, s.Name, s.ID, 0)
	r.log.Info().Str("id", s.ID).Str("name", s.Name).Msg("player joined")
}

// Disconnect starts the grace period of the connection's session
func (r *Relay) Disconnect(connID string, now time.Time) {
	s, ok := r.sessions.Disconnect(connID, now)
	if !ok {
		return
	}
	r.sched.Schedule(taskGrace+connID, s.GraceDeadline, func(at time.Time) {
		r.ExpireGrace(connID, at)
	})
	r.broadcastCount()
	r.log.Info().Str("id", s.ID).Str("name", s.Name).Time("deadline", s.GraceDeadline).Msg("player disconnected")
}

// ExpireGrace removes a session whose grace period ran out
func (r *Relay) ExpireGrace(connID string, now time.Time) {
	s, ok := r.sessions.ExpireGrace(connID, now)
	if !ok {
		return
	}
	r.log.Info().Str("id", s.ID).Str("name", s.Name).Msg("grace expired")
	r.finishRemoval(s, now)
}

// Heartbeat records liveness for the connection
func (r *Relay) Heartbeat(connID string, now time.Time) {
	r.sessions.Heartbeat(connID, now)
}

// Sweep evicts active sessions that missed the heartbeat timeout
func (r *Relay) Sweep(now time.Time) {
	for _, s := range r.sessions.Sweep(now) {
		r.log.Info().Str("id", s.ID).Str("name", s.Name).Msg("heartbeat timeout")
		r.finishRemoval(s, now)
		r.closeClient(s)
	}
}

// Kick removes the session holding name immediately
func (r *Relay) Kick(name string, now time.Time) bool {
	name, err := NormalizeName(name)
	if err != nil {
		return false
	}
	s := r.sessions.ByName(name)
	if s == nil {
		return false
	}
	r.sessions.Remove(s.ID)
	r.log.Info().Str("id", s.ID).Str("name", s.Name).Msg("player kicked")
	r.finishRemoval(s, now)
	r.closeClient(s)
	return true
}

// finishRemoval announces a session that has just been removed
func (r *Relay) finishRemoval(s *Session, now time.Time) {
	r.sched.Cancel(taskGrace + s.ID)
	r.sched.Cancel(taskRespawn + s.ID)
	r.engine.Forget(s.ID)
	r.broadcast(Envelope{T: MsgPlayerLeft, Data: PlayerLeftMsg{ID: s.ID}})
	r.broadcastCount()
	r.analytics.Track(EvtSessionEnd, s.Name, s.ID, now.Sub(s.JoinedAt).Seconds())
}

func (r *Relay) closeClient(s *Session) {
	if s.client != nil {
		s.client.Close()
		s.client = nil
	}
}

// ---------- gameplay events ----------

// touch marks an accepted event from s
func touch(s *Session, now time.Time) {
	s.LastActiveTime = now
	s.LastHeartbeatTime = now
}

// Move overwrites the sender's kinematic state and relays it
func (r *Relay) Move(connID string, msg MoveMsg, now time.Time) {
	s := r.sessions.Active(connID)
	if s == nil {
		return
	}
	if !finite(msg.X, msg.Y, msg.Rotation, msg.Speed) {
		r.metrics.drop("malformed_move")
		return
	}
	touch(s, now)
	s.X, s.Y = msg.X, msg.Y
	s.Rotation, s.Speed = msg.Rotation, msg.Speed

	if r.cfg.Authoritative {
		if tr := r.engine.ContainTransition(s.X, s.Y); tr.Moved() {
			s.X, s.Y = tr.ToX, tr.ToY
			s.client.SendJSON(Envelope{T: MsgPositionAdjusted, Data: PositionAdjustedMsg{ID: s.ID, Transition: tr.ToState()}})
			r.broadcast(Envelope{T: MsgPlayerMoved, Data: movedMsg(s)})
			return
		}
	}
	r.broadcastExcept(s.ID, Envelope{T: MsgPlayerMoved, Data: movedMsg(s)})
}

// Shoot relays a shot to everyone once the sender's cooldown has elapsed
func (r *Relay) Shoot(connID string, msg ShootMsg, now time.Time) {
	s := r.sessions.Active(connID)
	if s == nil || s.Dead {
		return
	}
	if !finite(msg.X, msg.Y, msg.TargetX, msg.TargetY) {
		r.metrics.drop("malformed_shot")
		return
	}
	touch(s, now)
	if now.Sub(s.LastShotTime) <= r.cfg.ShootCooldown {
		r.metrics.drop("cooldown")
		return
	}
	s.LastShotTime = now

	r.broadcast(Envelope{T: MsgPlayerShot, Data: PlayerShotMsg{
		ID: s.ID, X: msg.X, Y: msg.Y, TargetX: msg.TargetX, TargetY: msg.TargetY,
	}})
	r.metrics.shots.Add(context.Background(), 1)
	r.analytics.Track(EvtPlayerShot, s.Name, s.ID, 0)

	if r.cfg.Authoritative {
		r.shotSeq++
		id := s.ID + "-" + strconv.FormatUint(r.shotSeq, 10)
		total := FlightTimeFor(msg.X, msg.Y, msg.TargetX, msg.TargetY)
		r.projectiles = append(r.projectiles, NewProjectile(id, s.ID, msg.X, msg.Y, msg.TargetX, msg.TargetY, total))
	}
}

// Hit applies client-reported damage. In authoritative mode hits come from
// the server's own projectiles and reports are ignored.
func (r *Relay) Hit(connID string, msg HitMsg, now time.Time) {
	s := r.sessions.Active(connID)
	if s == nil {
		return
	}
	touch(s, now)
	if r.cfg.Authoritative {
		r.metrics.drop("authoritative_hit")
		return
	}
	if !finite(msg.Damage) || msg.Damage < 0 {
		r.metrics.drop("malformed_hit")
		return
	}
	target := r.sessions.Get(msg.Target())
	if target == nil {
		return
	}
	r.applyDamage(target, roundHealth(msg.Damage), now)
}

// applyDamage lowers health, clamped at zero, and handles death
func (r *Relay) applyDamage(target *Session, damage int, now time.Time) {
	if target.Dead {
		return
	}
	target.Health -= damage
	if target.Health < 0 {
		target.Health = 0
	}
	r.broadcast(Envelope{T: MsgPlayerDamaged, Data: PlayerDamagedMsg{ID: target.ID, Health: target.Health}})
	r.metrics.hits.Add(context.Background(), 1)
	r.analytics.Track(EvtPlayerHit, target.Name, target.ID, float64(damage))

	if target.Health > 0 {
		return
	}
	target.Dead = true
	r.broadcast(Envelope{T: MsgPlayerDied, Data: PlayerDiedMsg{ID: target.ID}})
	r.metrics.deaths.Add(context.Background(), 1)
	r.analytics.Track(EvtPlayerDeath, target.Name, target.ID, 0)
	r.log.Debug().Str("id", target.ID).Msg("player died")

	id := target.ID
	r.sched.Schedule(taskRespawn+id, now.Add(r.cfg.RespawnDelay), func(at time.Time) {
		r.respawn(id)
	})
}

func (r *Relay) respawn(id string) {
	s := r.sessions.Get(id)
	if s == nil || !s.Dead {
		return
	}
	s.Dead = false
	s.Health = PlayerMaxHP
	s.Speed = 0
	s.X, s.Y = r.world.RandomSpawn(r.rng)
	r.broadcast(Envelope{T: MsgPlayerRespawned, Data: PlayerRespawnedMsg{ID: s.ID, X: s.X, Y: s.Y, Health: s.Health}})
}

// Collision relays a client-detected contact and applies its bounce to id2
func (r *Relay) Collision(connID string, msg CollisionMsg, now time.Time) {
	s := r.sessions.Active(connID)
	if s == nil {
		return
	}
	touch(s, now)
	r.broadcast(Envelope{T: MsgCollisionOccurred, Data: msg})

	if msg.BounceX == nil || msg.BounceY == nil || !finite(*msg.BounceX, *msg.BounceY) {
		return
	}
	other := r.sessions.Active(msg.ID2)
	if other == nil {
		return
	}
	other.X, other.Y = r.world.ClampToWorld(other.X+*msg.BounceX, other.Y+*msg.BounceY)
	r.broadcast(Envelope{T: MsgPlayerMoved, Data: movedMsg(other)})
}

// RequestInfo answers with the current record of the requested session
func (r *Relay) RequestInfo(connID string, msg InfoRequestMsg, now time.Time) {
	s := r.sessions.Active(connID)
	if s == nil {
		return
	}
	touch(s, now)
	target := r.sessions.Get(msg.ID)
	if target == nil {
		return
	}
	s.client.SendJSON(Envelope{T: MsgPlayerInfo, Data: PlayerInfoMsg{ID: target.ID, Player: target.ToRecord()}})
}

// stepProjectiles advances server-side projectiles and resolves their hits
func (r *Relay) stepProjectiles(now time.Time, dt float64) {
	if len(r.projectiles) == 0 {
		return
	}
	vessels := r.liveVessels()
	kept := r.projectiles[:0]
	for _, p := range r.projectiles {
		arrived := p.Advance(dt)
		if victim, ok := r.engine.ProjectileHit(p, vessels); ok {
			if target := r.sessions.Get(victim); target != nil {
				r.applyDamage(target, BulletDamage, now)
			}
			continue
		}
		if arrived {
			r.broadcast(Envelope{T: MsgProjectileLanded, Data: ProjectileLandedMsg{ShooterID: p.ShooterID, X: p.TargetX, Y: p.TargetY}})
			continue
		}
		kept = append(kept, p)
	}
	for i := len(kept); i < len(r.projectiles); i++ {
		r.projectiles[i] = nil
	}
	r.projectiles = kept
}

// liveVessels lists the active sessions that can be hit, ordered by id
func (r *Relay) liveVessels() []Vessel {
	all := r.sessions.All()
	vessels := make([]Vessel, 0, len(all))
	for _, s := range all {
		if s.State == StateActive && !s.Dead {
			vessels = append(vessels, s.Vessel())
		}
	}
	return vessels
}

// ---------- outbound ----------

func (r *Relay) snapshot(selfID, token string) GameStateMsg {
	state := GameStateMsg{
		WorldWidth:  r.world.Width,
		WorldHeight: r.world.Height,
		Islands:     r.world.IslandStates(),
		Players:     make(map[string]PlayerRecord),
		SelfID:      selfID,
		Token:       token,
	}
	for _, s := range r.sessions.All() {
		state.Players[s.ID] = s.ToRecord()
	}
	for _, p := range r.projectiles {
		state.Projectiles = append(state.Projectiles, p.ToState())
	}
	return state
}

func (r *Relay) issueToken(s *Session) string {
	if r.auth == nil {
		return ""
	}
	token, err := r.auth.IssueReconnectToken(s.Name, s.ID)
	if err != nil {
		r.log.Error().Err(err).Msg("issue reconnect token")
		return ""
	}
	return token
}

func (r *Relay) validToken(msg JoinMsg) bool {
	if r.auth == nil || msg.Token == "" {
		return false
	}
	name, err := NormalizeName(msg.Name)
	if err != nil {
		return false
	}
	return r.auth.ValidateReconnectToken(msg.Token, name) == nil
}

func (r *Relay) broadcast(msg Envelope) {
	r.broadcastExcept("", msg)
}

// broadcastExcept sends msg to every active session other than skipID
func (r *Relay) broadcastExcept(skipID string, msg Envelope) {
	for _, s := range r.sessions.All() {
		if s.ID == skipID || s.State != StateActive || s.client == nil {
			continue
		}
		s.client.SendJSON(msg)
	}
}

// broadcastCount emits the active-player count and syncs the gauge
func (r *Relay) broadcastCount() {
	n := r.sessions.ActiveCount()
	if delta := int64(n) - r.active.Swap(int64(n)); delta != 0 {
		r.metrics.players.Add(context.Background(), delta)
	}
	r.broadcast(Envelope{T: MsgPlayerCount, Data: PlayerCountMsg{Count: n}})
}

func movedMsg(s *Session) PlayerMovedMsg {
	return PlayerMovedMsg{ID: s.ID, X: s.X, Y: s.Y, Rotation: s.Rotation, Speed: s.Speed}
}

func finite(vals ...float64) bool {
	for _, v := range vals {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return true
}

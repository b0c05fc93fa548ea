package main

import (
	"context"
	"encoding/json"
	"fmt"
	"math/rand/v2"
	"strconv"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
	"github.com/vmihailenco/msgpack/v5"
	"golang.org/x/sync/errgroup"
)

const (
	botMoveEvery      = 3 // ticks between playerMove reports
	botShootInterval  = 1500 * time.Millisecond
	botShootRange     = 600.0
	botWaypointReach  = 100.0
	botStartupStagger = 50 * time.Millisecond
)

// RunBots connects n headless clients and runs them until ctx ends or one fails
func RunBots(ctx context.Context, url, prefix string, n int, log zerolog.Logger) error {
	g, ctx := errgroup.WithContext(ctx)
	for i := 0; i < n; i++ {
		b := newBot(prefix+strconv.Itoa(i+1), log, rand.New(rand.NewPCG(uint64(time.Now().UnixNano()), uint64(i))))
		g.Go(func() error {
			return b.run(ctx, url)
		})
		select {
		case <-time.After(botStartupStagger):
		case <-ctx.Done():
		}
	}
	return g.Wait()
}

// botEvent is one decoded server frame
type botEvent struct {
	env   InEnvelope
	state *GameStateMsg
}

// bot simulates a player locally the way a browser client does and reports
// the results to the relay
type bot struct {
	name string
	log  zerolog.Logger
	rng  *rand.Rand
	conn *websocket.Conn

	selfID   string
	self     Vessel
	dead     bool
	world    *World
	engine   *CollisionEngine
	others   map[string]*Vessel
	shots    []*Projectile
	lastShot time.Time
	tick     uint64
	wpX      float64
	wpY      float64
}

func newBot(name string, log zerolog.Logger, rng *rand.Rand) *bot {
	return &bot{
		name:   name,
		log:    log.With().Str("bot", name).Logger(),
		rng:    rng,
		others: make(map[string]*Vessel),
	}
}

func (b *bot) run(ctx context.Context, url string) error {
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, url, nil)
	if err != nil {
		return fmt.Errorf("%s: dial: %w", b.name, err)
	}
	b.conn = conn
	defer conn.Close()

	events := make(chan botEvent, 256)
	readErr := make(chan error, 1)
	done := make(chan struct{})
	defer close(done)
	go b.readLoop(events, readErr, done)

	if err := b.send(MsgJoin, JoinMsg{Name: b.name}); err != nil {
		return err
	}

	ticker := time.NewTicker(TickDuration)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			conn.WriteMessage(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
			return ctx.Err()
		case err := <-readErr:
			return fmt.Errorf("%s: read: %w", b.name, err)
		case ev := <-events:
			if err := b.handle(ev); err != nil {
				return err
			}
		case now := <-ticker.C:
			if err := b.step(now); err != nil {
				return err
			}
		}
	}
}

func (b *bot) readLoop(events chan<- botEvent, errc chan<- error, done <-chan struct{}) {
	deliver := func(ev botEvent) bool {
		select {
		case events <- ev:
			return true
		case <-done:
			return false
		}
	}
	for {
		msgType, raw, err := b.conn.ReadMessage()
		if err != nil {
			errc <- err
			return
		}
		if msgType == websocket.BinaryMessage {
			var gs GameStateMsg
			if err := msgpack.Unmarshal(raw, &gs); err != nil {
				b.log.Warn().Err(err).Msg("bad game state")
				continue
			}
			if !deliver(botEvent{state: &gs}) {
				return
			}
			continue
		}
		var env InEnvelope
		if err := json.Unmarshal(raw, &env); err != nil {
			continue
		}
		if !deliver(botEvent{env: env}) {
			return
		}
	}
}

func (b *bot) send(t string, data interface{}) error {
	b.conn.SetWriteDeadline(time.Now().Add(writeWait))
	return b.conn.WriteJSON(Envelope{T: t, Data: data})
}

func (b *bot) handle(ev botEvent) error {
	if ev.state != nil {
		b.sync(ev.state)
		return nil
	}
	switch ev.env.T {
	case MsgJoinError:
		var msg JoinErrorMsg
		json.Unmarshal(ev.env.D, &msg)
		return fmt.Errorf("%s: join rejected: %s", b.name, msg.Reason)
	case MsgHeartbeatRequest:
		return b.send(MsgHeartbeat, nil)
	case MsgPlayerJoined:
		var msg PlayerJoinedMsg
		if json.Unmarshal(ev.env.D, &msg) == nil && msg.ID != b.selfID {
			b.others[msg.ID] = &Vessel{ID: msg.ID, X: msg.Player.X, Y: msg.Player.Y}
		}
	case MsgPlayerLeft:
		var msg PlayerLeftMsg
		if json.Unmarshal(ev.env.D, &msg) == nil {
			delete(b.others, msg.ID)
		}
	case MsgPlayerMoved:
		var msg PlayerMovedMsg
		if json.Unmarshal(ev.env.D, &msg) != nil {
			return nil
		}
		v := b.vessel(msg.ID)
		v.X, v.Y = msg.X, msg.Y
		if msg.ID != b.selfID {
			v.Rotation, v.Speed = msg.Rotation, msg.Speed
		}
	case MsgPositionAdjusted:
		var msg PositionAdjustedMsg
		if json.Unmarshal(ev.env.D, &msg) == nil && msg.ID == b.selfID {
			b.self.X, b.self.Y = msg.Transition.ToX, msg.Transition.ToY
		}
	case MsgPlayerShot:
		var msg PlayerShotMsg
		if json.Unmarshal(ev.env.D, &msg) == nil && msg.ID == b.selfID {
			total := FlightTimeFor(msg.X, msg.Y, msg.TargetX, msg.TargetY)
			b.shots = append(b.shots, NewProjectile("", msg.ID, msg.X, msg.Y, msg.TargetX, msg.TargetY, total))
		}
	case MsgPlayerDied:
		var msg PlayerDiedMsg
		if json.Unmarshal(ev.env.D, &msg) == nil && msg.ID == b.selfID {
			b.dead = true
			b.self.Speed = 0
		}
	case MsgPlayerRespawned:
		var msg PlayerRespawnedMsg
		if json.Unmarshal(ev.env.D, &msg) != nil {
			return nil
		}
		v := b.vessel(msg.ID)
		v.X, v.Y = msg.X, msg.Y
		if msg.ID == b.selfID {
			b.dead = false
			b.pickWaypoint()
		}
	}
	return nil
}

// vessel returns the local copy of id, creating it for unseen ids
func (b *bot) vessel(id string) *Vessel {
	if id == b.selfID {
		return &b.self
	}
	v, ok := b.others[id]
	if !ok {
		v = &Vessel{ID: id}
		b.others[id] = v
	}
	return v
}

// sync rebuilds local state from the initial game state
func (b *bot) sync(gs *GameStateMsg) {
	b.selfID = gs.SelfID
	b.world = WorldFromState(gs.WorldWidth, gs.WorldHeight, gs.Islands)
	b.engine = NewCollisionEngine(b.world, time.Second)
	clear(b.others)
	for id, p := range gs.Players {
		v := Vessel{ID: id, X: p.X, Y: p.Y, Rotation: p.Rotation, Speed: p.Speed}
		if id == b.selfID {
			b.self = v
			continue
		}
		if p.Connected {
			b.others[id] = &v
		}
	}
	b.pickWaypoint()
	b.log.Info().Str("id", b.selfID).Int("islands", len(gs.Islands)).Msg("joined")
}

func (b *bot) pickWaypoint() {
	if b.world == nil {
		return
	}
	b.wpX, b.wpY = b.world.RandomSpawn(b.rng)
}

// step runs one frame of the local simulation
func (b *bot) step(now time.Time) error {
	if b.selfID == "" {
		return nil
	}
	b.tick++
	if err := b.stepShots(TickDuration.Seconds()); err != nil {
		return err
	}
	if b.dead {
		return nil
	}

	if Distance(b.self.X, b.self.Y, b.wpX, b.wpY) < botWaypointReach {
		b.pickWaypoint()
	}
	StepVessel(&b.self, Controls{Forward: true, Aim: true, AimX: b.wpX, AimY: b.wpY}, 1)

	for _, o := range b.others {
		contact, ok := b.engine.VesselVessel(b.self, *o, now)
		if !ok {
			continue
		}
		b.self.X += contact.BounceX
		b.self.Y += contact.BounceY
		if contact.Announce {
			bx, by := -contact.BounceX, -contact.BounceY
			if err := b.send(MsgCollision, CollisionMsg{ID1: b.selfID, ID2: o.ID, BounceX: &bx, BounceY: &by}); err != nil {
				return err
			}
		}
	}
	b.engine.VesselIslands(&b.self)

	if b.tick%botMoveEvery == 0 {
		if err := b.send(MsgPlayerMove, MoveMsg{X: b.self.X, Y: b.self.Y, Rotation: b.self.Rotation, Speed: b.self.Speed}); err != nil {
			return err
		}
	}
	return b.maybeShoot(now)
}

func (b *bot) maybeShoot(now time.Time) error {
	if now.Sub(b.lastShot) < botShootInterval {
		return nil
	}
	var target *Vessel
	best := botShootRange
	for _, o := range b.others {
		if d := Distance(b.self.X, b.self.Y, o.X, o.Y); d < best {
			best, target = d, o
		}
	}
	if target == nil {
		return nil
	}
	b.lastShot = now
	return b.send(MsgPlayerShoot, ShootMsg{X: b.self.X, Y: b.self.Y, TargetX: target.X, TargetY: target.Y})
}

// stepShots flies the bot's own projectiles and reports the hits they score
func (b *bot) stepShots(dt float64) error {
	if len(b.shots) == 0 {
		return nil
	}
	targets := make([]Vessel, 0, len(b.others))
	for _, o := range b.others {
		targets = append(targets, *o)
	}
	kept := b.shots[:0]
	for _, p := range b.shots {
		arrived := p.Advance(dt)
		if victim, ok := b.engine.ProjectileHit(p, targets); ok {
			if err := b.send(MsgPlayerHit, HitMsg{TargetID: victim, Damage: BulletDamage}); err != nil {
				return err
			}
			continue
		}
		if !arrived {
			kept = append(kept, p)
		}
	}
	b.shots = kept
	return nil
}

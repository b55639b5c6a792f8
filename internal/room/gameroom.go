package room

import (
	"fmt"
	"sort"
	"strings"

	"go.uber.org/zap"

	"rpsarena/internal/config"
	"rpsarena/internal/game"
	"rpsarena/internal/protocol"
	"rpsarena/internal/session"
	"rpsarena/internal/timer"
)

// Phase is a game room's coarse state.
type Phase string

const (
	PhaseReady      Phase = "READY"
	PhaseInProgress Phase = "IN_PROGRESS"
)

// GameRoom runs the simultaneous-choice elimination game on top of the base
// Room. All gameplay state below is owned by the room goroutine.
//
// Round-end can be reached from two sides at once: the round timer expiring
// and the last eligible pick arriving. Both paths land in the same mailbox, so
// they are serialized; the timer generation counter drops firings armed for an
// earlier round, and the resolved flag makes a same-round duplicate a no-op.
type GameRoom struct {
	Room

	phase Phase
	round int

	// Host-mutable feature toggles.
	rps5       bool
	rps5Final3 bool
	cooldown   bool

	readyTimer *timer.TimedEvent
	roundTimer *timer.TimedEvent
	readyGen   uint64
	roundGen   uint64

	// resolved marks the current round as already ended.
	resolved bool

	stopping bool
}

func NewGameRoom(name string, dir Directory, cfg config.Config, log *zap.Logger) *GameRoom {
	g := &GameRoom{
		Room:  *newRoom(name, dir, cfg, log),
		phase: PhaseReady,
	}
	g.onMemberAdded = g.syncStateToClient
	g.onMemberRemoved = g.afterMemberRemoved
	return g
}

// Run drains the mailbox until the room shuts down or empties out. Any joins
// still queued behind the stop are bounced to the lobby so no client is left
// without a room.
func (g *GameRoom) Run() {
	for m := range g.inbox {
		if stop := g.handle(m); stop {
			g.bounceQueued()
			return
		}
	}
}

func (g *GameRoom) handle(m Msg) bool {
	switch msg := m.(type) {
	case Join:
		g.addMember(msg.C)
	case Disconnected:
		g.removeMember(msg.C, true)
	case Inbound:
		g.handleGameInbound(msg.From, msg.P)
	case TimerDone:
		g.handleTimerDone(msg)
	case TimerTick:
		g.handleTimerTick(msg)
	case GetState:
		msg.Reply <- g.gameView()
	case Shutdown:
		g.resetReadyTimer()
		g.resetRoundTimer()
		g.log.Info("game room shutting down")
		return true
	}
	return g.stopping
}

func (g *GameRoom) bounceQueued() {
	for {
		select {
		case m := <-g.inbox:
			if j, ok := m.(Join); ok {
				g.dir.JoinRoom(j.C, Lobby)
			}
		default:
			return
		}
	}
}

func (g *GameRoom) handleGameInbound(from *session.Client, p protocol.Payload) {
	if g.indexOf(from.ID()) < 0 {
		from.SendMessage(protocol.DefaultClientID, "You are not in this room")
		return
	}
	switch p.Type {
	case protocol.TypeReady:
		g.handleReady(from)
	case protocol.TypeTurn:
		g.handleTurnAction(from, p.Message)
	case protocol.TypeSettings:
		g.handleSettings(from, p.Message)
	case protocol.TypeAway:
		g.handleSettings(from, "away")
	default:
		g.handleInbound(from, p)
	}
}

// syncStateToClient brings a new member up to date: phase, everyone's ready
// status, points when a session is running, and the feature toggles.
func (g *GameRoom) syncStateToClient(c *session.Client) {
	c.SendPhase(string(g.phase))
	for _, m := range g.members {
		c.SendReadyStatus(m.ID(), m.Player.IsReady(), true)
	}
	if g.phase != PhaseReady {
		for _, m := range g.members {
			if m.ID() != c.ID() {
				c.SendPlayerPoints(m.ID(), m.Player.Points)
			}
		}
	}
	c.SendSettings("rps5", onOff(g.rps5))
	c.SendSettings("rps5_final3", onOff(g.rps5Final3))
	c.SendSettings("cooldown", onOff(g.cooldown))
}

func (g *GameRoom) afterMemberRemoved(*session.Client) {
	if len(g.members) == 0 {
		g.resetReadyTimer()
		g.resetRoundTimer()
		g.onSessionEnd()
		g.dir.RemoveRoom(g.name)
		g.stopping = true
		return
	}
	if g.phase == PhaseInProgress {
		// The departed member may have been the last one holding up the round.
		g.checkAllPicked()
	}
}

// handleReady opts a player into the next session. The session starts as soon
// as every member is ready and the room meets the minimum size.
func (g *GameRoom) handleReady(from *session.Client) {
	if g.phase != PhaseReady {
		from.SendMessage(protocol.DefaultClientID, "Ready-up is only available between sessions")
		return
	}
	if from.Player.IsSpectator() {
		from.Player.Participation = session.Ready
	}
	for _, m := range g.members {
		m.SendReadyStatus(from.ID(), true, false)
	}

	ready := g.readyCount()
	if ready == len(g.members) && ready >= g.cfg.MinPlayersToStart {
		g.resetReadyTimer()
		g.onSessionStart()
		return
	}
	g.maybeArmReadyTimer()
}

// handleTurnAction validates and applies one pick.
func (g *GameRoom) handleTurnAction(from *session.Client, token string) {
	pl := &from.Player

	if g.phase != PhaseInProgress {
		from.SendMessage(protocol.DefaultClientID, "You can only pick during the IN_PROGRESS phase")
		return
	}
	if !pl.IsReady() {
		from.SendMessage(protocol.DefaultClientID, "You must ready up before playing")
		return
	}
	if pl.Eliminated {
		from.SendMessage(protocol.DefaultClientID, "You are eliminated and cannot pick.")
		return
	}
	if pl.Participation != session.Playing {
		from.SendMessage(protocol.DefaultClientID, "Spectators cannot play.")
		return
	}
	if pl.Choice != game.ChoiceNone {
		from.SendMessage(protocol.DefaultClientID, fmt.Sprintf("You have already picked %s", pl.Choice))
		return
	}

	choice, ok := game.ParseChoice(token)
	if !ok {
		from.SendMessage(protocol.DefaultClientID, "Invalid choice. Use r, p, s, l, or sp.")
		return
	}

	if choice.Extended() && !g.rps5Allowed() {
		msg := "RPS-5 is disabled."
		if g.rps5 && g.rps5Final3 {
			msg += " (Wait for Final 3)"
		}
		from.SendMessage(protocol.DefaultClientID, msg)
		return
	}

	if g.cooldown && pl.LastChoice != game.ChoiceNone && pl.LastChoice == choice {
		from.SendMessage(protocol.DefaultClientID,
			fmt.Sprintf("Cooldown enabled. You cannot pick %s again.", choice))
		return
	}

	pl.Choice = choice
	pl.TookTurn = true
	g.broadcastGameEvent(fmt.Sprintf("%s picked their choice", from.Name()))
	for _, m := range g.members {
		m.SendTurnStatus(from.ID(), true, false)
	}
	g.checkAllPicked()
}

// rps5Allowed applies the final-three gate: with rps5_final3 on, extended
// symbols unlock only once at most three active players remain.
func (g *GameRoom) rps5Allowed() bool {
	if !g.rps5 {
		return false
	}
	if g.rps5Final3 && g.activePlayerCount() > 3 {
		return false
	}
	return true
}

// activePlayerCount counts members still in the fight: playing, not
// eliminated, not away.
func (g *GameRoom) activePlayerCount() int {
	n := 0
	for _, m := range g.members {
		pl := m.Player
		if pl.Participation == session.Playing && !pl.Eliminated && !pl.Away {
			n++
		}
	}
	return n
}

// checkAllPicked ends the round early once every eligible player has a choice
// in.
func (g *GameRoom) checkAllPicked() {
	eligible, picked := 0, 0
	for _, m := range g.members {
		pl := m.Player
		if pl.Participation != session.Playing || pl.Eliminated || pl.Away {
			continue
		}
		eligible++
		if pl.Choice != game.ChoiceNone {
			picked++
		}
	}
	if eligible > 0 && picked >= eligible {
		g.broadcastGameEvent("All active players have picked!")
		g.onRoundEnd()
	}
}

func (g *GameRoom) onSessionStart() {
	g.log.Info("session starting", zap.Int("members", len(g.members)))
	g.changePhase(PhaseInProgress)
	g.round = 0
	for _, m := range g.members {
		m.Player.Eliminated = false
		m.Player.LastChoice = game.ChoiceNone
		if m.Player.IsReady() {
			m.Player.Participation = session.Playing
		}
	}
	g.onRoundStart()
}

func (g *GameRoom) onRoundStart() {
	g.resetRoundTimer()
	for _, m := range g.members {
		m.Player.Choice = game.ChoiceNone
		m.Player.TookTurn = false
	}
	for _, m := range g.members {
		m.SendResetTurnStatus()
	}
	g.round++
	g.broadcastGameEvent(fmt.Sprintf("Round %d has started", g.round))
	g.resolved = false
	g.startRoundTimer()
}

// onRoundEnd resolves the round. Reachable from timer expiry and from the
// all-picked check; the resolved guard makes every call after the first a
// no-op until the next round is armed.
func (g *GameRoom) onRoundEnd() {
	if g.phase != PhaseInProgress || g.resolved {
		return
	}
	g.resolved = true
	g.resetRoundTimer()

	// Remember picks for the cooldown rule before anything clears them.
	for _, m := range g.members {
		if m.Player.Choice != game.ChoiceNone {
			m.Player.LastChoice = m.Player.Choice
		}
	}

	// No pick by the deadline costs the round, unless away or spectating.
	for _, m := range g.members {
		pl := &m.Player
		if pl.Participation == session.Playing && !pl.Eliminated && !pl.Away && pl.Choice == game.ChoiceNone {
			pl.Eliminated = true
			g.broadcastGameEvent(m.Name() + " eliminated (did not pick)")
		}
	}

	var contenders []game.Contender
	for _, m := range g.members {
		pl := m.Player
		if pl.Participation == session.Playing && !pl.Eliminated && !pl.Away && pl.Choice != game.ChoiceNone {
			contenders = append(contenders, game.Contender{ID: m.ID(), Name: m.Name(), Choice: pl.Choice})
		}
	}
	out := game.ResolveBattles(contenders)

	for _, id := range out.Eliminated {
		c := g.byID(id)
		if c == nil || c.Player.Eliminated {
			continue // no re-announce for the no-pick pass
		}
		c.Player.Eliminated = true
		g.broadcastGameEvent(c.Name() + " has been eliminated!")
	}
	if len(out.Log) > 0 {
		g.broadcastGameEvent("Battle Results:\n" + strings.Join(out.Log, "\n"))
	}
	for id, delta := range out.Points {
		if c := g.byID(id); c != nil {
			c.Player.Points += delta
		}
	}
	g.syncAllPoints()

	active := 0
	var last *session.Client
	for _, m := range g.members {
		if m.Player.Participation == session.Playing && !m.Player.Eliminated {
			active++
			last = m
		}
	}
	switch {
	case active == 1:
		g.broadcastGameEvent("Game Over! Winner: " + last.Name())
		g.onSessionEnd()
	case active == 0 && len(g.members) > 0:
		g.broadcastGameEvent("Game Over! It's a Tie (No survivors)")
		g.onSessionEnd()
	default:
		g.onRoundStart()
	}
}

func (g *GameRoom) onSessionEnd() {
	g.resetReadyTimer()
	for _, m := range g.members {
		m.Player.Participation = session.Spectating
		m.Player.TookTurn = false
		m.Player.Choice = game.ChoiceNone
	}
	for _, m := range g.members {
		m.SendResetReady()
		m.SendResetTurnStatus()
	}
	g.changePhase(PhaseReady)

	sorted := make([]*session.Client, len(g.members))
	copy(sorted, g.members)
	// Stable keeps arrival order as the tiebreak.
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Player.Points > sorted[j].Player.Points
	})
	var sb strings.Builder
	sb.WriteString("Final Scoreboard:\n")
	for _, m := range sorted {
		fmt.Fprintf(&sb, "%s: %d\n", m.Name(), m.Player.Points)
	}
	g.broadcastGameEvent(sb.String())

	for _, m := range g.members {
		m.Player.Points = 0
	}
}

// handleSettings applies a "<key> <on|off>" command. Feature toggles are
// host-only; away is open to everyone and toggles when no value is given.
func (g *GameRoom) handleSettings(from *session.Client, command string) {
	parts := strings.Fields(strings.ToLower(command))
	if len(parts) == 0 {
		from.SendMessage(protocol.DefaultClientID, "Usage: <setting> <on|off>")
		return
	}
	key := parts[0]

	if key != "away" && from.ID() != g.hostID {
		from.SendMessage(protocol.DefaultClientID, "Only the host can change game settings.")
		return
	}

	switch key {
	case "rps5", "rps5_final3", "cooldown":
		if len(parts) < 2 {
			from.SendMessage(protocol.DefaultClientID, "Usage: "+key+" <on|off>")
			return
		}
		on := parseOn(parts[1])
		var label string
		switch key {
		case "rps5":
			g.rps5 = on
			label = "RPS-5"
		case "rps5_final3":
			g.rps5Final3 = on
			label = "RPS-5 Final 3 Mode"
		case "cooldown":
			g.cooldown = on
			label = "Cooldown"
		}
		for _, m := range g.members {
			m.SendSettings(key, onOff(on))
		}
		if on {
			g.broadcastGameEvent(label + " Enabled")
		} else {
			g.broadcastGameEvent(label + " Disabled")
		}

	case "away":
		away := !from.Player.Away
		if len(parts) > 1 {
			away = parseOn(parts[1])
		}
		from.Player.Away = away
		if away {
			g.broadcastGameEvent(from.Name() + " is now Away")
		} else {
			g.broadcastGameEvent(from.Name() + " is no longer Away")
		}
		for _, m := range g.members {
			m.SendAwayStatus(from.ID(), away, false)
		}

	default:
		from.SendMessage(protocol.DefaultClientID, "Unknown setting: "+key)
	}
}

// timers

func (g *GameRoom) handleTimerDone(msg TimerDone) {
	switch msg.Kind {
	case protocol.TimerRound:
		if msg.Gen != g.roundGen {
			g.log.Debug("dropping stale round timer", zap.Uint64("gen", msg.Gen), zap.Uint64("current", g.roundGen))
			return
		}
		// A natural expiry must clear the client countdown the same way a
		// cancel does; onRoundEnd sees a nil timer and will not re-send it.
		g.roundTimer = nil
		g.roundGen++
		g.broadcastTime(protocol.TimerRound, -1)
		g.onRoundEnd()
	case protocol.TimerReady:
		if msg.Gen != g.readyGen {
			return
		}
		g.readyTimer = nil
		g.readyGen++
		g.broadcastTime(protocol.TimerReady, -1)
		g.onReadyTimerExpired()
	}
}

func (g *GameRoom) handleTimerTick(msg TimerTick) {
	switch msg.Kind {
	case protocol.TimerRound:
		if msg.Gen == g.roundGen {
			g.broadcastTime(protocol.TimerRound, msg.Remaining)
		}
	case protocol.TimerReady:
		if msg.Gen == g.readyGen {
			g.broadcastTime(protocol.TimerReady, msg.Remaining)
		}
	}
}

// onReadyTimerExpired auto-starts with whoever is ready, if still enough of
// them; everyone else spectates the session.
func (g *GameRoom) onReadyTimerExpired() {
	if g.phase != PhaseReady {
		return
	}
	if g.readyCount() >= g.cfg.MinPlayersToStart {
		g.broadcastGameEvent("Ready countdown expired, starting with ready players")
		g.onSessionStart()
		return
	}
	g.broadcastGameEvent("Not enough players ready; countdown cancelled")
}

// maybeArmReadyTimer starts the ready countdown once the room could start but
// not everyone has opted in yet.
func (g *GameRoom) maybeArmReadyTimer() {
	if g.readyTimer != nil || g.phase != PhaseReady {
		return
	}
	if len(g.members) < g.cfg.MinPlayersToStart || g.readyCount() == 0 {
		return
	}
	g.readyGen++
	gen := g.readyGen
	inbox := g.inbox
	t := timer.New(g.cfg.ReadySeconds, func() {
		inbox <- TimerDone{Kind: protocol.TimerReady, Gen: gen}
	})
	t.SetTickCallback(func(remaining int) {
		select {
		case inbox <- TimerTick{Kind: protocol.TimerReady, Remaining: remaining, Gen: gen}:
		default:
		}
	})
	g.readyTimer = t
	g.broadcastGameEvent(fmt.Sprintf("Session auto-starts in %d seconds", g.cfg.ReadySeconds))
}

func (g *GameRoom) resetReadyTimer() {
	if g.readyTimer != nil {
		g.readyTimer.Cancel()
		g.readyTimer = nil
		g.readyGen++
		g.broadcastTime(protocol.TimerReady, -1)
	}
}

func (g *GameRoom) startRoundTimer() {
	g.roundGen++
	gen := g.roundGen
	inbox := g.inbox
	t := timer.New(g.cfg.RoundSeconds, func() {
		inbox <- TimerDone{Kind: protocol.TimerRound, Gen: gen}
	})
	t.SetTickCallback(func(remaining int) {
		// Losing a countdown tick is harmless; never block the timer goroutine
		// behind a busy mailbox.
		select {
		case inbox <- TimerTick{Kind: protocol.TimerRound, Remaining: remaining, Gen: gen}:
		default:
		}
	})
	g.roundTimer = t
}

func (g *GameRoom) resetRoundTimer() {
	if g.roundTimer != nil {
		g.roundTimer.Cancel()
		g.roundTimer = nil
		g.roundGen++
		g.broadcastTime(protocol.TimerRound, -1)
	}
}

// helpers

func (g *GameRoom) changePhase(p Phase) {
	g.phase = p
	for _, m := range g.members {
		m.SendPhase(string(p))
	}
}

func (g *GameRoom) broadcastTime(tt protocol.TimerType, seconds int) {
	for _, m := range g.members {
		m.SendCurrentTime(tt, seconds)
	}
}

func (g *GameRoom) syncAllPoints() {
	for _, m := range g.members {
		for _, target := range g.members {
			target.SendPlayerPoints(m.ID(), m.Player.Points)
		}
	}
}

func (g *GameRoom) readyCount() int {
	n := 0
	for _, m := range g.members {
		if m.Player.IsReady() {
			n++
		}
	}
	return n
}

func (g *GameRoom) gameView() View {
	v := g.view()
	v.Phase = g.phase
	v.Round = g.round
	v.RPS5 = g.rps5
	v.RPS5Final3 = g.rps5Final3
	v.Cooldown = g.cooldown
	v.ReadyTimerArmed = g.readyTimer != nil
	v.RoundTimerArmed = g.roundTimer != nil
	v.ReadyGen = g.readyGen
	v.RoundGen = g.roundGen
	return v
}

func onOff(on bool) string {
	if on {
		return "on"
	}
	return "off"
}

func parseOn(v string) bool {
	return v == "on" || v == "true"
}

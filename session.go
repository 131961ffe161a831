package mcp

import "sync"

// SessionState is the Protocol Engine's connection state machine (spec.md
// §4.3): Disconnected -> Connected -> Initializing -> Ready, with Closed
// reachable from any state once the transport tears down.
type SessionState int

const (
	StateDisconnected SessionState = iota
	StateConnected
	StateInitializing
	StateReady
	StateClosed
)

func (s SessionState) String() string {
	switch s {
	case StateDisconnected:
		return "disconnected"
	case StateConnected:
		return "connected"
	case StateInitializing:
		return "initializing"
	case StateReady:
		return "ready"
	case StateClosed:
		return "closed"
	default:
		return "unknown"
	}
}

// Role distinguishes which side of the handshake an Engine plays.
type Role int

const (
	RoleClient Role = iota
	RoleServer
)

// ProtocolVersionLatest is the only protocol version this engine speaks.
const ProtocolVersionLatest = "2024-11-05"

// Implementation identifies a client or server (spec.md §4.3's
// clientInfo/serverInfo).
type Implementation struct {
	Name    string `json:"name"`
	Version string `json:"version"`
}

// Session holds the negotiated state of one connection: which role this
// side plays, the state machine position, and whatever the peer told us
// about itself during initialize. Separated from Engine so tests can
// inspect/drive state without a live transport.
type Session struct {
	mu sync.RWMutex

	role            Role
	state           SessionState
	localCaps       Capabilities
	peerCaps        Capabilities
	peerInfo        Implementation
	protocolVersion string
	instructions    string
}

func newSession(role Role, localCaps Capabilities) *Session {
	return &Session{role: role, state: StateDisconnected, localCaps: localCaps}
}

func (s *Session) State() SessionState {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state
}

func (s *Session) setState(st SessionState) {
	s.mu.Lock()
	s.state = st
	s.mu.Unlock()
}

// Ready reports whether the session has completed its handshake.
func (s *Session) Ready() bool { return s.State() == StateReady }

func (s *Session) Role() Role {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.role
}

// LocalCapabilities returns what this side advertised.
func (s *Session) LocalCapabilities() *Capabilities {
	s.mu.RLock()
	defer s.mu.RUnlock()
	caps := s.localCaps
	return &caps
}

// PeerCapabilities returns what the peer advertised during initialize.
// Empty (all-nil) until the handshake completes.
func (s *Session) PeerCapabilities() *Capabilities {
	s.mu.RLock()
	defer s.mu.RUnlock()
	caps := s.peerCaps
	return &caps
}

func (s *Session) setPeerCapabilities(caps Capabilities) {
	s.mu.Lock()
	s.peerCaps = caps
	s.mu.Unlock()
}

// PeerInfo returns the peer's self-reported Implementation.
func (s *Session) PeerInfo() Implementation {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.peerInfo
}

func (s *Session) setPeerInfo(info Implementation) {
	s.mu.Lock()
	s.peerInfo = info
	s.mu.Unlock()
}

// ProtocolVersion returns the negotiated protocol version, empty until the
// handshake completes.
func (s *Session) ProtocolVersion() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.protocolVersion
}

func (s *Session) setProtocolVersion(v string) {
	s.mu.Lock()
	s.protocolVersion = v
	s.mu.Unlock()
}

// Instructions returns the server-supplied free-text usage instructions, if
// any (spec.md §4.3's InitializeResult.instructions).
func (s *Session) Instructions() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.instructions
}

func (s *Session) setInstructions(v string) {
	s.mu.Lock()
	s.instructions = v
	s.mu.Unlock()
}

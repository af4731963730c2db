package notify

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	lua "github.com/yuin/gopher-lua"

	"github.com/bdrydyk/homebridge-securitysystem/internal/domain/security"
	"github.com/bdrydyk/homebridge-securitysystem/internal/logger"
)

// Script hook settings.
const (
	// ScriptHandler is the global Lua function called for every notification.
	ScriptHandler = "on_notify"
	// DefaultScriptTimeout bounds one handler call.
	DefaultScriptTimeout = 5 * time.Second
)

// ErrNoHandler is returned when a script does not define the handler function.
var ErrNoHandler = errors.New("script does not define " + ScriptHandler)

// Script calls a Lua function per notification:
//
//	function on_notify(kind, name, cue)
//	  security.log(kind .. " " .. name)
//	end
//
// kind is "current" or "target", name is the mode name or "alert".
type Script struct {
	mu      sync.Mutex
	state   *lua.LState
	handler *lua.LFunction
	ctx     context.Context
	timeout time.Duration
}

// LoadScript compiles the script at path in a sandboxed Lua state.
func LoadScript(ctx context.Context, path string) (*Script, error) {
	s := &Script{
		state:   newSandbox(),
		ctx:     logger.WithName(ctx, "script"),
		timeout: DefaultScriptTimeout,
	}

	registerSecurityModule(s)

	if err := s.state.DoFile(path); err != nil {
		s.state.Close()

		return nil, fmt.Errorf("load script %s: %w", path, err)
	}

	handler, ok := s.state.GetGlobal(ScriptHandler).(*lua.LFunction)
	if !ok {
		s.state.Close()

		return nil, fmt.Errorf("%s: %w", path, ErrNoHandler)
	}

	s.handler = handler

	return s, nil
}

// Name implements Notifier.
func (s *Script) Name() string {
	return "script"
}

// Notify implements Notifier.
func (s *Script) Notify(ctx context.Context, n security.Notification) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state == nil {
		return nil
	}

	callCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	s.state.SetContext(callCtx)
	defer s.state.RemoveContext()

	err := s.state.CallByParam(lua.P{
		Fn:      s.handler,
		NRet:    0,
		Protect: true,
	}, lua.LString(n.Kind.String()), lua.LString(n.Name()), lua.LBool(n.Cue))
	if err != nil {
		return fmt.Errorf("call %s: %w", ScriptHandler, err)
	}

	return nil
}

// Close releases the Lua state.
func (s *Script) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state != nil {
		s.state.Close()
		s.state = nil
	}
}

// newSandbox creates a Lua state without file system and process access.
func newSandbox() *lua.LState {
	state := lua.NewState()

	for _, name := range []string{"os", "io", "loadfile", "dofile", "require", "load", "debug", "package"} {
		state.SetGlobal(name, lua.LNil)
	}

	return state
}

// registerSecurityModule registers the `security` global table.
func registerSecurityModule(s *Script) {
	mod := s.state.NewTable()

	mod.RawSetString("log", s.state.NewFunction(func(state *lua.LState) int {
		logger.Info(s.ctx, state.CheckString(1))

		return 0
	}))

	s.state.SetGlobal("security", mod)
}

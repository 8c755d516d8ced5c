package state

import "errors"

const (
	StateConnecting = "connecting"
	StateOpen       = "open"
	StateClosing    = "closing"
	StateClosed     = "closed"
)

// ConnectingState 握手完成前
type ConnectingState struct {
	ConnStateBase
}

// OpenState 正常收发
type OpenState struct {
	ConnStateBase
}

func (s *OpenState) OnEnter() {
	s.Conn.Open()
}

func (s *OpenState) HandleMessage(data []byte) {
	s.Conn.HandleMessage(data)
}

// ClosingState 关闭进行中，迟到的消息被容忍并丢弃
type ClosingState struct {
	ConnStateBase
}

// ClosedState 终态
type ClosedState struct {
	ConnStateBase
}

func (s *ClosedState) OnEnter() {
	s.Conn.Close()
}

// ConnectionMachine 单个连接的生命周期：connecting -> open -> (closing) -> closed
type ConnectionMachine struct {
	*BaseStateMachine
	connecting *ConnectingState
	open       *OpenState
	closing    *ClosingState
	closed     *ClosedState
}

func NewConnectionMachine(conn ConnContext) *ConnectionMachine {
	m := &ConnectionMachine{
		connecting: &ConnectingState{ConnStateBase{ID: StateConnecting, Conn: conn}},
		open:       &OpenState{ConnStateBase{ID: StateOpen, Conn: conn}},
		closing:    &ClosingState{ConnStateBase{ID: StateClosing, Conn: conn}},
		closed:     &ClosedState{ConnStateBase{ID: StateClosed, Conn: conn}},
	}
	m.BaseStateMachine = NewBaseStateMachine(m.connecting)

	_ = m.AddTransition(m.connecting, m.open, nil)
	_ = m.AddTransition(m.connecting, m.closed, nil)
	_ = m.AddTransition(m.open, m.closing, nil)
	_ = m.AddTransition(m.open, m.closed, nil)
	_ = m.AddTransition(m.closing, m.closed, nil)
	return m
}

func (m *ConnectionMachine) Open() error {
	return m.ChangeState(m.open)
}

// BeginClose 进入 closing；已经在 closing 或 closed 时不报错
func (m *ConnectionMachine) BeginClose() error {
	err := m.ChangeState(m.closing)
	if errors.Is(err, ErrTransitionNotAllowed) {
		switch m.Current() {
		case StateClosing, StateClosed:
			return nil
		}
	}
	return err
}

// Close 进入终态，重复调用不会再次触发关闭钩子
func (m *ConnectionMachine) Close() error {
	err := m.ChangeState(m.closed)
	if errors.Is(err, ErrTransitionNotAllowed) && m.Current() == StateClosed {
		return nil
	}
	return err
}

func (m *ConnectionMachine) Current() string {
	return m.GetCurrentState().GetID()
}

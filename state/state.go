package state

import (
	"errors"
	"sync"
)

// 状态机接口
type StateMachine interface {
	ChangeState(state State) error
	GetCurrentState() State
	AddTransition(from State, to State, condition func() bool) error
}

// 状态接口
type State interface {
	OnEnter()
	OnExit()
	GetID() string
	HandleMessage(data []byte)
}

// ErrTransitionNotAllowed is returned when a state transition is not allowed.
var ErrTransitionNotAllowed = errors.New("state transition not allowed")

// 基础状态机实现。只允许通过 AddTransition 注册过的转换。
type BaseStateMachine struct {
	currentState State
	transitions  map[string]map[string]func() bool // fromState -> toState -> condition
	mutex        sync.RWMutex
}

func NewBaseStateMachine(initialState State) *BaseStateMachine {
	machine := &BaseStateMachine{
		currentState: initialState,
		transitions:  make(map[string]map[string]func() bool),
	}
	initialState.OnEnter()
	return machine
}

func (sm *BaseStateMachine) ChangeState(newState State) error {
	sm.mutex.Lock()
	defer sm.mutex.Unlock()

	currentID := sm.currentState.GetID()
	newID := newState.GetID()

	conditions, exists := sm.transitions[currentID]
	if !exists {
		return ErrTransitionNotAllowed
	}
	condition, exists := conditions[newID]
	if !exists {
		return ErrTransitionNotAllowed
	}
	if condition != nil && !condition() {
		return ErrTransitionNotAllowed
	}

	sm.currentState.OnExit()
	sm.currentState = newState
	sm.currentState.OnEnter()

	return nil
}

func (sm *BaseStateMachine) GetCurrentState() State {
	sm.mutex.RLock()
	defer sm.mutex.RUnlock()
	return sm.currentState
}

func (sm *BaseStateMachine) AddTransition(from State, to State, condition func() bool) error {
	sm.mutex.Lock()
	defer sm.mutex.Unlock()

	fromID := from.GetID()
	toID := to.GetID()

	if _, exists := sm.transitions[fromID]; !exists {
		sm.transitions[fromID] = make(map[string]func() bool)
	}

	sm.transitions[fromID][toID] = condition
	return nil
}

// Dispatch 在读锁下把消息交给当前状态处理；状态切换会等待正在处理的消息完成
func (sm *BaseStateMachine) Dispatch(data []byte) {
	sm.mutex.RLock()
	defer sm.mutex.RUnlock()
	sm.currentState.HandleMessage(data)
}

// 连接状态基础结构
type ConnStateBase struct {
	ID   string
	Conn ConnContext
}

func (s *ConnStateBase) GetID() string {
	return s.ID
}

func (s *ConnStateBase) OnEnter() {
	// 默认实现
}

func (s *ConnStateBase) OnExit() {
	// 默认实现
}

// HandleMessage 默认丢弃消息，只有 open 状态覆盖
func (s *ConnStateBase) HandleMessage(data []byte) {}

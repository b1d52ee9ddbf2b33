package sched

// WakerKind identifies a wait queue category.
type WakerKind uint8

const (
	WakerInvalid WakerKind = iota
	WakerJoin
	WakerLock
	WakerSemaphore
	WakerBarrier
	WakerTimer
)

// WakerKey identifies a wait queue.
type WakerKey struct {
	Kind WakerKind
	A    uint64
}

// IsValid reports whether the key is usable for waiting.
func (k WakerKey) IsValid() bool {
	return k.Kind != WakerInvalid
}

// JoinKey builds a join wait key for a target task.
func JoinKey(target TaskID) WakerKey {
	return WakerKey{Kind: WakerJoin, A: uint64(target)}
}

func lockKey(id uint64) WakerKey      { return WakerKey{Kind: WakerLock, A: id} }
func semaphoreKey(id uint64) WakerKey { return WakerKey{Kind: WakerSemaphore, A: id} }
func barrierKey(id uint64) WakerKey   { return WakerKey{Kind: WakerBarrier, A: id} }

// TimerKey builds a wait key for a timer.
func TimerKey(id TimerID) WakerKey {
	return WakerKey{Kind: WakerTimer, A: uint64(id)}
}

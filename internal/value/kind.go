package value

// Kind is the runtime tag of a Value.
type Kind uint8

const (
	KindNull Kind = iota
	KindBool
	KindShort
	KindInt
	KindLong
	KindFloat
	KindDouble
	KindChar
	KindString
	KindArray
	KindMap
	KindSet
	KindTuple
	KindFunction
	KindObject
	KindClass
	KindTask
	KindLock
	KindSemaphore
	KindBarrier
	KindChannel
	KindAddress
	KindAccount
)

var kindNames = [...]string{
	KindNull:      "null",
	KindBool:      "bool",
	KindShort:     "short",
	KindInt:       "int",
	KindLong:      "long",
	KindFloat:     "float",
	KindDouble:    "double",
	KindChar:      "char",
	KindString:    "string",
	KindArray:     "array",
	KindMap:       "map",
	KindSet:       "set",
	KindTuple:     "tuple",
	KindFunction:  "function",
	KindObject:    "object",
	KindClass:     "class",
	KindTask:      "Task",
	KindLock:      "Mutex",
	KindSemaphore: "Semaphore",
	KindBarrier:   "Barrier",
	KindChannel:   "Channel",
	KindAddress:   "address",
	KindAccount:   "account",
}

func (k Kind) String() string {
	if int(k) < len(kindNames) {
		return kindNames[k]
	}
	return "unknown"
}

// KindByName maps a type name used in `is` and `catch (e: T)` to a kind.
func KindByName(name string) (Kind, bool) {
	switch name {
	case "boolean":
		return KindBool, true
	case "Lock":
		return KindLock, true
	}
	for k, n := range kindNames {
		if n == name {
			return Kind(k), true
		}
	}
	return 0, false
}

// IsNumeric reports whether k takes part in arithmetic promotion.
func (k Kind) IsNumeric() bool { return k >= KindShort && k <= KindDouble }

// IsIntegral reports whether k is short, int or long.
func (k Kind) IsIntegral() bool { return k >= KindShort && k <= KindLong }

// IsFloating reports whether k is float or double.
func (k Kind) IsFloating() bool { return k == KindFloat || k == KindDouble }

// IsHandle reports whether the payload is a scheduler object.
func (k Kind) IsHandle() bool { return k >= KindTask && k <= KindChannel }

// IsRef reports whether values of this kind compare by identity.
func (k Kind) IsRef() bool {
	switch k {
	case KindArray, KindMap, KindSet, KindFunction, KindObject, KindClass:
		return true
	}
	return k.IsHandle()
}

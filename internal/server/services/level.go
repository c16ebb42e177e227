package services

// Level is the privilege tier a session must hold for a route.
type Level int

const (
	LevelUser Level = iota + 1
	LevelAdmin
)

func (l Level) String() string {
	switch l {
	case LevelUser:
		return "user"
	case LevelAdmin:
		return "admin"
	default:
		return "unknown"
	}
}

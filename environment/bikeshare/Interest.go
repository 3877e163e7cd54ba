package bikeshare

import "fmt"

// Directions in which a request can be redirected
const (
	Down int = iota
	Up
	Right
	Left
)

// Actions is the number of redirect directions
const Actions = 4

// Interest is a pending request to ride from the start station to the
// destination station
type Interest struct {
	StartL, StartW int
	DestL, DestW   int
}

func (i Interest) String() string {
	return fmt.Sprintf("(%d, %d) -> (%d, %d)", i.StartL, i.StartW, i.DestL,
		i.DestW)
}

// offset returns the station one cell from (l, w) in direction dir
func offset(l, w, dir int) (int, int) {
	switch dir {
	case Down:
		return l + 1, w
	case Up:
		return l - 1, w
	case Right:
		return l, w + 1
	case Left:
		return l, w - 1
	}
	return l, w
}

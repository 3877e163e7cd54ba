package gridworld

import "fmt"

// Cell is the content of a single grid cell
type Cell int

const (
	Empty Cell = iota
	Agent
	Goal
)

func (c Cell) String() string {
	switch c {
	case Agent:
		return "M"
	case Goal:
		return "C"
	default:
		return "."
	}
}

// Position is an (x, y) coordinate on the grid, x indexing columns
// and y indexing rows
type Position struct {
	X, Y int
}

func (p Position) String() string {
	return fmt.Sprintf("(%d, %d)", p.X, p.Y)
}

// Token is an object that occupies a cell of the grid
type Token struct {
	Name string
	Code Cell
	X, Y int
}

// NewMouse returns the agent token at (x, y)
func NewMouse(x, y int) *Token {
	return &Token{Name: "Mouse", Code: Agent, X: x, Y: y}
}

// NewCheese returns the goal token at (x, y)
func NewCheese(x, y int) *Token {
	return &Token{Name: "Cheese", Code: Goal, X: x, Y: y}
}

// Position returns the position of the token
func (t Token) Position() Position {
	return Position{t.X, t.Y}
}

func (t Token) String() string {
	return fmt.Sprintf("%v at %v", t.Name, t.Position())
}

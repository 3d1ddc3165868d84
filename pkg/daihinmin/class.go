package daihinmin

// Class is the social rank a seat carries into the next game, in finish
// order: the first seat out is the daifugō, the last the daihinmin.
type Class int

const (
	ClassDaifugo Class = iota
	ClassFugo
	ClassHeimin
	ClassHinmin
	ClassDaihinmin
)

func (c Class) String() string {
	switch c {
	case ClassDaifugo:
		return "daifugo"
	case ClassFugo:
		return "fugo"
	case ClassHeimin:
		return "heimin"
	case ClassHinmin:
		return "hinmin"
	case ClassDaihinmin:
		return "daihinmin"
	}
	return "unknown"
}

// ClassForFinish maps a finish position (1..5) to the class carried into the
// next game.
func ClassForFinish(pos int) Class {
	return Class(pos - 1)
}

// PointsForFinish awards 5 points for first place down to 1 for last.
func PointsForFinish(pos int) int {
	return NumSeats + 1 - pos
}

// DefaultClasses is the game-1 state: everyone is a heimin.
func DefaultClasses() [NumSeats]Class {
	var classes [NumSeats]Class
	for i := range classes {
		classes[i] = ClassHeimin
	}
	return classes
}

package forecast

// VertexTime is the handling time bounds at a graph vertex in hours.
type VertexTime struct {
	Lower float64
	Upper float64
}

// CalculateVertexTime derives the handling time from the vertex's
// historical average order residence interval. Both bounds collapse to
// the average until a per-vertex spread is tracked.
func CalculateVertexTime(avgORI float64) VertexTime {
	return VertexTime{Lower: avgORI, Upper: avgORI}
}

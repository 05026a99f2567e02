package logx

var _ Sink = (*sinkJoiner)(nil)

type sinkJoiner struct {
	a, b Sink
}

func (j *sinkJoiner) Log(level Level, logger, msg string) {
	j.a.Log(level, logger, msg)
	j.b.Log(level, logger, msg)
}

// MergeSinks will merge many [Sink] into one, so every message is delivered to all of them in order.
func MergeSinks(a, b Sink, others ...Sink) Sink {
	if a == nil || b == nil {
		panic("nil sink")
	}
	joined := &sinkJoiner{a, b}
	if len(others) > 0 {
		return MergeSinks(joined, others[0], others[1:]...)
	}
	return joined
}

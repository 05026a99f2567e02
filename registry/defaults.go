package registry

// Defaults is a table of handlers that a bus installs lazily, the first time it processes an event type that has no registered handler.
// A nil *Defaults is valid and contains nothing.
type Defaults struct {
	handlers map[TypeKey]Handler
}

func NewDefaults() *Defaults {
	return &Defaults{
		handlers: map[TypeKey]Handler{},
	}
}

// AddDefault sets fn as the default handler for T.
func AddDefault[T any](d *Defaults, fn func(T)) *Defaults {
	if d == nil {
		d = NewDefaults()
	}
	d.handlers[KeyOf[T]()] = Erase(fn)
	return d
}

func (d *Defaults) Lookup(key TypeKey) (Handler, bool) {
	if d == nil {
		return nil, false
	}
	handler, ok := d.handlers[key]
	return handler, ok
}

func (d *Defaults) Len() int {
	if d == nil {
		return 0
	}
	return len(d.handlers)
}

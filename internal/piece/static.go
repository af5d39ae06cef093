package piece

// static is the plain Piece implementation used for manifest-backed
// descriptors and programmatically registered pieces.
type static struct {
	desc     Descriptor
	triggers map[string]PollingTrigger
}

// Static builds a piece from a descriptor and its polling triggers.
// A nil trigger map is valid: a piece may expose only actions, which
// the coordinator never schedules.
func Static(desc Descriptor, triggers map[string]PollingTrigger) Piece {
	return &static{desc: desc, triggers: triggers}
}

func (s *static) Descriptor() Descriptor {
	return s.desc
}

func (s *static) PollingTrigger(name string) (PollingTrigger, bool) {
	t, ok := s.triggers[name]
	return t, ok
}

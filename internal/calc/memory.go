package calc

// Memory holds the partially known memory breakdown of one machine. A nil field
// was not reported. The fields are related by
//
//	configured = used + free + buffered + cached + slabRecl + slabUnrecl
type Memory struct {
	Configured *float64
	Used       *float64
	Free       *float64
	Buffered   *float64
	Cached     *float64
	SlabRecl   *float64
	SlabUnrecl *float64
}

// Float returns a pointer to v, for filling optional fields.
func Float(v float64) *float64 { return &v }

func allSet(vals ...*float64) bool {
	for _, v := range vals {
		if v == nil {
			return false
		}
	}
	return true
}

// FreeValue returns the free memory, reconstructed as configured-used when it
// was not reported. It is a required output, so it defaults to 0.
func (m Memory) FreeValue() float64 {
	if m.Free != nil {
		return *m.Free
	}
	if allSet(m.Configured, m.Used) {
		return *m.Configured - *m.Used
	}
	return 0
}

// UsedValue returns the used memory, reconstructed from the other five fields
// when it was not reported. Defaults to 0.
func (m Memory) UsedValue() float64 {
	if m.Used != nil {
		return *m.Used
	}
	if allSet(m.Configured, m.Free, m.Buffered, m.Cached, m.SlabRecl, m.SlabUnrecl) {
		return *m.Configured - (*m.Free + *m.Buffered + *m.Cached + *m.SlabRecl + *m.SlabUnrecl)
	}
	return 0
}

// Total returns the configured memory, reconstructed as the sum of all parts
// when it was not reported. It returns nil when neither is possible.
func (m Memory) Total() *float64 {
	if m.Configured != nil {
		return Float(*m.Configured)
	}
	if allSet(m.Used, m.Free, m.Buffered, m.Cached, m.SlabRecl, m.SlabUnrecl) {
		return Float(*m.Used + *m.Free + *m.Buffered + *m.Cached + *m.SlabRecl + *m.SlabUnrecl)
	}
	return nil
}

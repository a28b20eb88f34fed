package events

type subSettings struct {
	buffer           int
	matchFieldValues map[string]string
}

var subSettingsDefault = subSettings{
	buffer: 16,
}

func BufSize(n int) func(interface{}) error {
	return func(s interface{}) error {
		s.(*subSettings).buffer = n
		return nil
	}
}

// MatchFieldValue restricts the subscription to events whose named
// string field equals the given value. May be applied multiple times.
func MatchFieldValue(field, value string) func(interface{}) error {
	return func(s interface{}) error {
		settings := s.(*subSettings)
		if settings.matchFieldValues == nil {
			settings.matchFieldValues = make(map[string]string)
		}
		settings.matchFieldValues[field] = value
		return nil
	}
}

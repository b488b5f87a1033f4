package domain

// NetworkStatus mirrors what the platform reports about connectivity. Reachable and
// Transport are nil when unknown.
type NetworkStatus struct {
	Connected bool    `json:"connected"`
	Reachable *bool   `json:"reachable"`
	Transport *string `json:"transport"`
}

func (s NetworkStatus) Equal(o NetworkStatus) bool {
	if s.Connected != o.Connected {
		return false
	}
	if (s.Reachable == nil) != (o.Reachable == nil) || (s.Reachable != nil && *s.Reachable != *o.Reachable) {
		return false
	}
	if (s.Transport == nil) != (o.Transport == nil) || (s.Transport != nil && *s.Transport != *o.Transport) {
		return false
	}
	return true
}

func (s NetworkStatus) ReachableLabel() string {
	if s.Reachable == nil {
		return "unknown"
	}
	if *s.Reachable {
		return "yes"
	}
	return "no"
}

func (s NetworkStatus) TransportLabel() string {
	if s.Transport == nil || *s.Transport == "" {
		return "unknown"
	}
	return *s.Transport
}

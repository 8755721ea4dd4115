package redistransport

type configGetter interface {
	GetRealtime() Config
}

type Config struct {
	// MemberTTLSec is how long a presence entry stays valid without a
	// heartbeat refresh.
	MemberTTLSec int `yaml:"memberTtlSec"`
	HeartbeatSec int `yaml:"heartbeatSec"`
}

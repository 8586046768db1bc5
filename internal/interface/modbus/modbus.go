package modbus

//go:generate mockgen -destination=mock/mock_modbus.go -package=mock github.com/tetragramaton/smh-meter/internal/interface/modbus Session

// Session is a connection to a field bus that can address any unit on it.
// Sessions are not safe for concurrent use; callers sharing one session
// across several unit addresses must serialize their transactions.
type Session interface {
	Connect() error
	Close() error
	IsConnected() bool
	ReadInputRegisters(unit uint8, address, quantity uint16) ([]uint16, error)
	ReadHoldingRegisters(unit uint8, address, quantity uint16) ([]uint16, error)
	WriteHoldingRegisters(unit uint8, address uint16, values []uint16) error
	// Describe returns a short human readable form of the connection.
	Describe() string
}

// API is the byte oriented subset of the protocol client library a session
// drives.
type API interface {
	ReadHoldingRegisters(address, quantity uint16) (results []byte, err error)
	ReadInputRegisters(address, quantity uint16) (results []byte, err error)
	WriteMultipleRegisters(address, quantity uint16, value []byte) (results []byte, err error)
}

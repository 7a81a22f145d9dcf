package constants

const (
	// IDRandomBytes is the entropy of generated entity IDs (hex-encoded).
	IDRandomBytes = 16

	// CapabilityTokenBytes is the entropy of single-use verification and
	// reset tokens (hex-encoded).
	CapabilityTokenBytes = 32

	// InviteCodeLength is the length of the human-shareable game join code.
	InviteCodeLength = 8

	// WSClientSendBufferSize is the per-connection outbound message buffer.
	WSClientSendBufferSize = 256
)

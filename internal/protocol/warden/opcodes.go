package warden

import "fmt"

// ClientOpcode tags client -> server frames.
type ClientOpcode uint8

const (
	CMSGModuleMissing     ClientOpcode = 0
	CMSGModuleOK          ClientOpcode = 1
	CMSGCheatChecksResult ClientOpcode = 2
	CMSGMemChecksResult   ClientOpcode = 3
	CMSGHashResult        ClientOpcode = 4
	CMSGModuleFailed      ClientOpcode = 5
)

func (op ClientOpcode) String() string {
	switch op {
	case CMSGModuleMissing:
		return "MODULE_MISSING"
	case CMSGModuleOK:
		return "MODULE_OK"
	case CMSGCheatChecksResult:
		return "CHEAT_CHECKS_RESULT"
	case CMSGMemChecksResult:
		return "MEM_CHECKS_RESULT"
	case CMSGHashResult:
		return "HASH_RESULT"
	case CMSGModuleFailed:
		return "MODULE_FAILED"
	default:
		return fmt.Sprintf("CMSG(%d)", uint8(op))
	}
}

// ServerOpcode tags server -> client frames.
type ServerOpcode uint8

const (
	SMSGModuleUse          ServerOpcode = 0
	SMSGModuleCache        ServerOpcode = 1
	SMSGCheatChecksRequest ServerOpcode = 2
	SMSGModuleInitialize   ServerOpcode = 3
	SMSGMemChecksRequest   ServerOpcode = 4
	SMSGHashRequest        ServerOpcode = 5
)

func (op ServerOpcode) String() string {
	switch op {
	case SMSGModuleUse:
		return "MODULE_USE"
	case SMSGModuleCache:
		return "MODULE_CACHE"
	case SMSGCheatChecksRequest:
		return "CHEAT_CHECKS_REQUEST"
	case SMSGModuleInitialize:
		return "MODULE_INITIALIZE"
	case SMSGMemChecksRequest:
		return "MEM_CHECKS_REQUEST"
	case SMSGHashRequest:
		return "HASH_REQUEST"
	default:
		return fmt.Sprintf("SMSG(%d)", uint8(op))
	}
}

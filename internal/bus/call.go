package bus

import (
	"github.com/tidwall/sjson"

	"github.com/quayhost/quay/internal/descriptor"
)

// CreateMessage builds a system-call message body requesting creation of
// an application. Broadcast it on SystemChannel.
func CreateMessage(name string, desc descriptor.App) (string, error) {
	data, err := desc.JSON()
	if err != nil {
		return "", err
	}
	msg, err := sjson.Set("{}", "create.name", name)
	if err != nil {
		return "", err
	}
	return sjson.SetRaw(msg, "create.descriptor", string(data))
}

// DestroyMessage builds a system-call message body requesting destruction
// of the named application.
func DestroyMessage(name string) (string, error) {
	return sjson.Set("{}", "destroy", name)
}

package storagelog

import (
	"go.uber.org/zap"
)

// headMsg is a distinctive part of all messages.
const headMsg = "local storage operation"

// Write writes message about storage operation to logger.
func Write(logger *zap.Logger, fields ...zap.Field) {
	logger.Debug(headMsg, fields...)
}

// PathField returns logger's field for the file system path of a container.
func PathField(p string) zap.Field {
	return zap.String("path", p)
}

// ChunkField returns logger's field for chunk identifier.
func ChunkField(sub string) zap.Field {
	return zap.String("chunk", sub)
}

// OpField returns logger's field for operation type.
func OpField(op string) zap.Field {
	return zap.String("op", op)
}

// StorageTypeField returns logger's field for storage type.
func StorageTypeField(typ string) zap.Field {
	return zap.String("type", typ)
}

package logger

import (
	"time"

	"go.uber.org/zap"
)

// =================================================================================
// CAMPOS ESTÁNDAR - HTTP
// =================================================================================

// RequestID crea un campo para el ID del request.
func RequestID(v string) zap.Field {
	return zap.String("request_id", v)
}

// Method crea un campo para el método HTTP.
func Method(v string) zap.Field {
	return zap.String("method", v)
}

// Path crea un campo para el path del request.
func Path(v string) zap.Field {
	return zap.String("path", v)
}

// Status crea un campo para el status code HTTP.
func Status(v int) zap.Field {
	return zap.Int("status", v)
}

// Duration crea un campo para la duración del request.
func Duration(v time.Duration) zap.Field {
	return zap.Duration("duration", v)
}

// ClientIP crea un campo para la IP del cliente.
func ClientIP(v string) zap.Field {
	return zap.String("client_ip", v)
}

// =================================================================================
// CAMPOS ESTÁNDAR - OPENID
// =================================================================================

// ClaimedID crea un campo para el identificador reclamado por el usuario.
func ClaimedID(v string) zap.Field {
	return zap.String("claimed_id", v)
}

// OPEndpoint crea un campo para la URL del endpoint del provider.
func OPEndpoint(v string) zap.Field {
	return zap.String("op_endpoint", v)
}

// AssocHandle crea un campo para el handle de la asociación.
func AssocHandle(v string) zap.Field {
	return zap.String("assoc_handle", v)
}

// AssocType crea un campo para el algoritmo de la asociación.
func AssocType(v string) zap.Field {
	return zap.String("assoc_type", v)
}

// ProtoVersion crea un campo para la versión del protocolo del endpoint.
func ProtoVersion(v string) zap.Field {
	return zap.String("proto_version", v)
}

// Realm crea un campo para el realm del relying party.
func Realm(v string) zap.Field {
	return zap.String("realm", v)
}

// ReturnTo crea un campo para la URL de retorno.
func ReturnTo(v string) zap.Field {
	return zap.String("return_to", v)
}

// Candidates crea un campo para la cantidad de endpoints candidatos.
func Candidates(v int) zap.Field {
	return zap.Int("candidates", v)
}

// =================================================================================
// CAMPOS GENÉRICOS
// =================================================================================

// Err crea un campo de error (alias de zap.Error).
func Err(err error) zap.Field {
	return zap.Error(err)
}

// Any crea un campo genérico para cualquier tipo.
func Any(key string, v any) zap.Field {
	return zap.Any(key, v)
}

// String crea un campo string genérico.
func String(key, v string) zap.Field {
	return zap.String(key, v)
}

// Int crea un campo int genérico.
func Int(key string, v int) zap.Field {
	return zap.Int(key, v)
}

// Bool crea un campo bool genérico.
func Bool(key string, v bool) zap.Field {
	return zap.Bool(key, v)
}

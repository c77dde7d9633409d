package httpapi

// Result 所有 JSON 接口的响应包
// 扫码端、称重端和推车屏都只看 code：2000 成功，其余失败，失败原因在 message
type Result[T any] struct {
	Code    int    `json:"code"`
	Type    string `json:"type"`
	Message string `json:"message"`
	Result  T      `json:"result"`
}

// 响应码
const (
	ResultSuccess = 2000
	ResultError   = -1
)

// 响应类型
const (
	typeSuccess = "success"
	typeError   = "error"
)

func Ok[T any](result T) Result[T] {
	return Result[T]{Code: ResultSuccess, Type: typeSuccess, Message: "ok", Result: result}
}

// Fail 失败响应，result 固定为 null
func Fail(message string) Result[any] {
	return Result[any]{Code: ResultError, Type: typeError, Message: message}
}

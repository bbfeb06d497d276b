package common

import (
	"net/http"
)

// Greeting is the body of every response. The port in the text is fixed and
// does not follow the configured port.
const Greeting = "<h1>Hello from Node on port 3000</h1>"

var greetingBody = []byte(Greeting)

func greet(w http.ResponseWriter, r *http.Request) {
	// 设置Content-Type为text/html
	w.Header().Set("Content-Type", "text/html")
	w.WriteHeader(http.StatusOK)

	// 客户端断开时写入失败, 无需处理
	w.Write(greetingBody)
}

// GreetingHandler answers every request with Greeting, whatever the method,
// path or body.
func GreetingHandler() http.Handler {
	return http.HandlerFunc(greet)
}

// Package rhttpd is a batteries-included harness for services built on
// rhttp resources: environment-driven configuration, zap logging, an
// http.Server with sane timeouts and an fx-managed lifecycle.
//
// A service declares an environment, resources and routing:
//
//	type Env struct{ rhttpd.BaseEnvironment }
//
//	func main() {
//	    rhttpd.NewApp[Env](func(mux *http.ServeMux, opts rhttpd.DispatchOptions) {
//	        users := rhttp.NewResource(restjson.New()).Named("users").
//	            Handle(http.MethodGet, listUsers)
//	        mux.Handle("/users", rhttp.NewHandler(users, opts...))
//	    }).Run()
//	}
//
// The host traceback-visibility policy (whether envelope detail is shown to
// clients) comes from the RHTTP_EXPOSE_ERROR_DETAIL environment variable and
// is threaded into every engine via [DispatchOptions].
package rhttpd

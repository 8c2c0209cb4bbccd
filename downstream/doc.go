// Package downstream calls HTTP APIs on behalf of an application or a
// signed-in user.
//
// The package has two halves. The Finalizer prepares a request: it attaches
// the body, sets Accept: application/json and asks an
// AuthorizationHeaderProvider for the Authorization header. The codec turns
// an Input into request Content (SerializeInput) and a response into a typed
// result (DeserializeOutput).
//
// API ties both together with named Options and named HTTP clients:
//
//	store := downstream.NewOptionsStore(map[string]*downstream.Options{
//		"graph": {BaseURL: "https://graph.example.com/v1.0", Scopes: []string{"User.Read"}},
//	})
//	api := downstream.New(provider, factory, store)
//
//	me, err := downstream.Get[User](ctx, api, "graph",
//		downstream.ForUser(principal),
//		downstream.WithOptions(func(o *downstream.Options) { o.RelativePath = "me" }))
//
// Failures raised here are *Error values; errors from the provider and from
// custom Serializer or Deserializer functions are returned unchanged.
package downstream

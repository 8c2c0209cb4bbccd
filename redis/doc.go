// Package redis backs the shared application token cache with go-redis.
//
// TypedStore keeps JSON values under a key prefix with a TTL, which is all
// the client credentials provider needs to share tokens between replicas:
//
//	client, err := redis.New(cfg, log)
//	store := redis.NewTypedStore[oauth2.Token](client, "apikit:tokens")
//	cc, err := authheader.NewClientCredentials(creds, authheader.WithTokenStore(store))
package redis

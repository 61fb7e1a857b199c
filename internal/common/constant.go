package common

// AuthorizationHeaderName is the HTTP header carrying the bearer token on
// protected requests.
const AuthorizationHeaderName = "Authorization"

// BearerScheme is the authorization scheme accepted by the request gate.
const BearerScheme = "Bearer"

package common

// RefreshTokenCookieName is the HttpOnly cookie that carries the refresh
// token between the browser and the HTTP boundary.
const RefreshTokenCookieName = "refreshToken"

// AuthorizationHeaderName carries "Bearer <access token>" on inbound requests.
const AuthorizationHeaderName = "Authorization"

// DefaultAvatar is assigned to identities registered without an avatar.
const DefaultAvatar = "dog"

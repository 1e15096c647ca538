package api

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/hypernova-labs/cadastro-service/internal/models"
	"github.com/hypernova-labs/cadastro-service/internal/security"
)

const (
	contextActorKey  = "actor"
	contextClaimsKey = "claims"
)

// AuthMiddleware valida o Bearer token, checa a revogação e injeta o
// ator no contexto da request.
func (api *API) AuthMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if !strings.HasPrefix(header, "Bearer ") {
			c.JSON(http.StatusUnauthorized, models.NewErrorResponse(
				models.ErrorCodeUnauthorized, "Token de acesso ausente."))
			c.Abort()
			return
		}

		claims, err := api.authenticate(strings.TrimPrefix(header, "Bearer "))
		if err != nil {
			api.respondError(c, err)
			c.Abort()
			return
		}

		actor, err := actorFromClaims(claims)
		if err != nil {
			api.respondError(c, err)
			c.Abort()
			return
		}

		c.Set(contextActorKey, actor)
		c.Set(contextClaimsKey, claims)
		c.Next()
	}
}

// RequireReviewer barra atores que não são ANALYST/ADMIN
func (api *API) RequireReviewer() gin.HandlerFunc {
	return func(c *gin.Context) {
		actor := actorFrom(c)
		if !actor.Role.IsReviewer() {
			c.JSON(http.StatusForbidden, models.NewErrorResponse(
				models.ErrorCodeForbidden, "Acesso negado."))
			c.Abort()
			return
		}
		c.Next()
	}
}

// authenticate decodifica um access token e checa a blacklist
func (api *API) authenticate(token string) (*security.Claims, error) {
	claims, err := api.jwt.Decode(token)
	if err != nil {
		return nil, err
	}
	if claims.TokenType != security.TokenTypeAccess {
		return nil, models.NewUnauthorizedError("Token inválido.")
	}

	revoked, err := api.authService.IsAccessTokenRevoked(claims.ID)
	if err != nil {
		return nil, err
	}
	if revoked {
		return nil, models.NewUnauthorizedError("Token revogado.")
	}

	return claims, nil
}

// actorFromClaims monta o Actor a partir das claims validadas
func actorFromClaims(claims *security.Claims) (models.Actor, error) {
	userID, err := claims.SubjectUserID()
	if err != nil {
		return models.Actor{}, err
	}
	role := models.Role(claims.RoleID)
	if !role.Valid() {
		return models.Actor{}, models.NewUnauthorizedError("Token inválido.")
	}
	return models.Actor{UserID: userID, Role: role}, nil
}

// actorFrom recupera o ator injetado pelo AuthMiddleware
func actorFrom(c *gin.Context) models.Actor {
	if v, ok := c.Get(contextActorKey); ok {
		if actor, ok := v.(models.Actor); ok {
			return actor
		}
	}
	return models.Actor{}
}

// claimsFrom recupera as claims injetadas pelo AuthMiddleware
func claimsFrom(c *gin.Context) *security.Claims {
	if v, ok := c.Get(contextClaimsKey); ok {
		if claims, ok := v.(*security.Claims); ok {
			return claims
		}
	}
	return nil
}

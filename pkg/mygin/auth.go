package mygin

import (
	"crypto/subtle"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/naiba/nezha-uptime/model"
)

type AuthorizeOption struct {
	// Token is the shared bearer token. Empty disables the check.
	Token string
	Msg   string
}

func Authorize(opt AuthorizeOption) gin.HandlerFunc {
	return func(c *gin.Context) {
		if opt.Token == "" {
			return
		}
		// API鉴权
		token := strings.TrimSpace(strings.TrimPrefix(c.GetHeader("Authorization"), "Bearer "))
		if token == "" {
			token = c.Query("token")
		}
		if subtle.ConstantTimeCompare([]byte(token), []byte(opt.Token)) != 1 {
			ShowError(c, ErrInfo{Code: http.StatusUnauthorized, Msg: opt.Msg})
			return
		}
		c.Set(model.CtxKeyAuthorizedUser, true)
	}
}

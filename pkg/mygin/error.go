package mygin

import (
	"github.com/gin-gonic/gin"

	"github.com/naiba/nezha-uptime/model"
)

type ErrInfo struct {
	Code   int
	Msg    string
	Fields map[string]string
}

// ShowError answers with a failed envelope and aborts the chain.
func ShowError(c *gin.Context, i ErrInfo) {
	c.AbortWithStatusJSON(i.Code, model.CommonResponse[any]{
		Success: false,
		Error:   i.Msg,
		Fields:  i.Fields,
	})
}

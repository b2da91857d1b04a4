package middleware

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// ExtractUintParam кладет положительный числовой параметр пути (ID вопроса) в контекст под contextKey
func ExtractUintParam(paramName, contextKey string) gin.HandlerFunc {
	return extractParam(paramName, contextKey, func(raw string) (uint, error) {
		id, err := strconv.ParseUint(raw, 10, 32)
		if err == nil && id == 0 {
			err = errors.New("zero id")
		}
		return uint(id), err
	})
}

// ExtractUUIDParam кладет UUID из пути (ID игрока) в контекст под contextKey
func ExtractUUIDParam(paramName, contextKey string) gin.HandlerFunc {
	return extractParam(paramName, contextKey, uuid.Parse)
}

func extractParam[T any](paramName, contextKey string, parse func(string) (T, error)) gin.HandlerFunc {
	return func(c *gin.Context) {
		value, err := parse(c.Param(paramName))
		if err != nil {
			c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "Invalid " + paramName})
			return
		}
		c.Set(contextKey, value)
		c.Next()
	}
}

package router

import (
	"github.com/gin-gonic/gin"
)

// RegisterV1Routes 注册 v1 版本路由
func RegisterV1Routes(v1 *gin.RouterGroup, h Handlers) {
	// 写作风格
	styles := v1.Group("/styles")
	{
		styles.GET("", h.Style.ListStyles)
		styles.PUT("/custom", h.Style.SetCustomStyle)
	}

	// 向导
	wizard := v1.Group("/wizard")
	{
		wizard.GET("", h.Wizard.GetState)
		wizard.POST("/style", h.Wizard.SelectStyle)
		wizard.POST("/next", h.Wizard.Next)
		wizard.POST("/back", h.Wizard.Back)
		wizard.PUT("/stage", h.Wizard.GoTo)
		wizard.POST("/draft", h.Wizard.SubmitDraft)
		wizard.POST("/reset", h.Wizard.Reset)
	}

	// 交互会话
	session := v1.Group("/session")
	{
		session.GET("", h.Session.GetSession)
		session.POST("/start", h.Session.StartRun)
		session.DELETE("/run", h.Session.CancelRun)
		session.GET("/stream", h.Session.Stream)
		session.POST("/messages", h.Session.SendMessage)
		session.POST("/save", h.Session.Save)
	}

	// 小说库
	library := v1.Group("/library")
	{
		library.GET("", h.Library.ListNovels)
		library.GET("/:id", h.Library.GetNovel)
	}
}

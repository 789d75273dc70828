package router

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/limiter"

	"github.com/fanlink/fanlink/app/controllers"
	"github.com/fanlink/fanlink/internal/pkg/middleware"
	"github.com/fanlink/fanlink/internal/pkg/token"
)

type ApiRouter struct {
}

func NewApiRouter() *ApiRouter {
	return &ApiRouter{}
}

func (h ApiRouter) InstallRouter(app *fiber.App) {
	tokens := token.NewManagerFromEnv()
	authed := middleware.BearerAuthMiddleware(tokens)
	admin := middleware.RequireAdmin()
	subscriber := middleware.RequireActiveSubscription()

	root := app.Group("", cors.New(), limiter.New(limiter.Config{
		Max: 120,
	}))

	// Webhooks carry their own signature check and must stay outside the
	// bearer middleware. The raw body is what gets verified.
	root.Post("/subscription/stripe/webhook", controllers.HandleStripeWebhook)
	root.Post("/payment/stripe/webhook", controllers.HandleStripeWebhook) // legacy alias

	auth := root.Group("/auth")
	auth.Post("/register", controllers.HandleRegister)
	auth.Post("/login", controllers.HandleLogin(tokens))
	auth.Post("/refresh-token", controllers.HandleRefreshToken(tokens))
	auth.Post("/forgot-password", controllers.HandleForgotPassword)
	auth.Post("/reset-password", controllers.HandleResetPassword)
	auth.Post("/logout", authed, controllers.HandleLogout)
	auth.Post("/logout-all", authed, controllers.HandleLogoutAll)
	auth.Get("/profile", authed, controllers.HandleProfile)
	auth.Patch("/profile", authed, controllers.HandleUpdateProfile)
	auth.Post("/change-password", authed, controllers.HandleChangePassword)

	post := root.Group("/post", authed)
	post.Post("/", controllers.HandleCreatePost)
	post.Get("/", controllers.HandleListPosts)
	post.Get("/feed", subscriber, controllers.HandleFeed)
	post.Get("/user/:id", controllers.HandleGetUserPosts)
	post.Get("/:id", controllers.HandleGetPost)
	post.Patch("/:id", controllers.HandleUpdatePost)
	post.Delete("/:id", controllers.HandleDeletePost)
	post.Post("/:id/like", controllers.HandleToggleLike)
	post.Post("/:id/comment", controllers.HandleCreateComment)
	post.Get("/:id/comment", controllers.HandleGetComments)
	post.Patch("/:id/comment/:comment_id", controllers.HandleUpdateComment)
	post.Delete("/:id/comment/:comment_id", controllers.HandleDeleteComment)

	user := root.Group("/user", authed)
	user.Get("/search", controllers.HandleSearchUsers)
	user.Get("/", admin, controllers.HandleListUsers)
	user.Delete("/:id", admin, controllers.HandleDeleteUser)

	follower := root.Group("/follower", authed)
	follower.Post("/:id", controllers.HandleFollow)
	follower.Delete("/:id", controllers.HandleUnfollow)
	follower.Get("/:id/followers", controllers.HandleGetFollowers)
	follower.Get("/:id/following", controllers.HandleGetFollowing)

	chat := root.Group("/chat", authed)
	chat.Post("/message", controllers.HandleSendMessage)
	chat.Post("/message/image", controllers.HandleSendImageMessage)
	chat.Delete("/message/:id", controllers.HandleDeleteMessage)
	chat.Get("/conversations", controllers.HandleGetConversations)
	chat.Get("/conversations/:id/messages", controllers.HandleGetMessages)
	chat.Post("/conversations/:id/read", controllers.HandleMarkConversationRead)
	chat.Delete("/conversations/:id", controllers.HandleDeleteConversation)
	chat.Get("/unread", controllers.HandleGetUnread)

	subscription := root.Group("/subscription", authed)
	subscription.Post("/", controllers.HandleCreateSubscription)
	subscription.Patch("/", controllers.HandleUpdateSubscription)
	subscription.Delete("/", controllers.HandleCancelSubscription)
	subscription.Get("/", controllers.HandleGetSubscription)
	subscription.Get("/history", controllers.HandleGetSubscriptionHistory)
	subscription.Post("/payment-method", controllers.HandleAttachPaymentMethod)

	paymentGroup := root.Group("/payment", authed)
	paymentGroup.Post("/intent", controllers.HandleCreatePaymentIntent)
	paymentGroup.Get("/transactions", controllers.HandleGetTransactions)
	paymentGroup.Get("/transactions/:id", controllers.HandleGetTransaction)

	emailTemplate := root.Group("/email-template", authed, admin)
	emailTemplate.Get("/", controllers.HandleListEmailTemplates)
	emailTemplate.Post("/", controllers.HandleCreateEmailTemplate)
	emailTemplate.Get("/:id", controllers.HandleGetEmailTemplate)
	emailTemplate.Patch("/:id", controllers.HandleUpdateEmailTemplate)
	emailTemplate.Delete("/:id", controllers.HandleDeleteEmailTemplate)
	emailTemplate.Post("/:id/preview", controllers.HandlePreviewEmailTemplate)

	notification := root.Group("/notification", authed)
	notification.Get("/", controllers.HandleGetNotifications)
	notification.Post("/read-all", controllers.HandleMarkAllNotificationsRead)
	notification.Post("/:id/read", controllers.HandleMarkNotificationRead)
}

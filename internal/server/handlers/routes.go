package handlers

import "github.com/go-chi/chi/v5"

// Mount registers the site endpoints on r. Uploaded images are served from
// uploadsDir when it is set.
func (a *API) Mount(r chi.Router, uploadsDir string) {
	r.Get("/sitemap.xml", a.Sitemap)
	if uploadsDir != "" {
		r.Handle(uploadsPrefix+"*", UploadsHandler(uploadsDir))
	}

	r.Route("/api", func(r chi.Router) {
		r.Use(a.LoadSession)

		r.Post("/interpret", a.Interpret)
		r.Post("/contact", a.Contact)
		r.Get("/site-config", a.SiteConfig)

		r.Get("/setup/status", a.SetupStatus)
		r.Post("/setup", a.Setup)

		r.Get("/categories", a.ListCategories)
		r.Get("/posts", a.ListPosts)
		r.Get("/posts/{id}", a.GetPost)
		r.Get("/posts/slug/{slug}", a.GetPostBySlug)

		r.Post("/admin/login", a.Login)
		r.Post("/admin/logout", a.Logout)
		r.Get("/admin/me", a.Me)

		r.Group(func(r chi.Router) {
			r.Use(a.RequireAdmin)

			r.Post("/categories", a.CreateCategory)
			r.Delete("/categories/{id}", a.DeleteCategory)
			r.Post("/posts", a.CreatePost)
			r.Put("/posts/{id}", a.UpdatePost)
			r.Delete("/posts/{id}", a.DeletePost)

			r.Post("/admin/uploads", a.UploadImage)
			r.Get("/admin/contact", a.ListContactMessages)
			r.Put("/admin/site-config", a.UpdateSiteConfig)
		})
	})
}

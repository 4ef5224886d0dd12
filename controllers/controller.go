package controllers

// Controller is the shared base embedded by the API controllers.
type Controller struct{}

// Package database provides the interface between an application and its
// local SQLite database, built on gorm.
//
// An Interface owns the engine, hands out context-scoped sessions and
// creates the tables and views registered in its Metadata:
//
//	database.RegisterModels(&User{}, &Post{})
//	database.RegisterViews(database.View{Name: "active_users", SQL: "SELECT * FROM users WHERE active"})
//
//	db := database.CreateDefaultInterface(database.WithConfig(cfg.Database.Config))
//
// Applications wrap their initialization with InterfaceSelector. A
// non-testing app then uses the default interface, while every testing app
// gets an interface of its own whose database is initialized on the spot:
//
//	initApp := database.InterfaceSelector(func(ctx context.Context, host database.Host) error {
//	    // register routes, blueprints ...
//	    return nil
//	})
//
// Work that must be atomic runs in a transaction on the interface carried by
// the request context:
//
//	err := database.Transact(ctx, func(ctx context.Context, tx *gorm.DB) error {
//	    return tx.Create(&user).Error
//	})
//
// Foreign keys are enforced on every connection.
package database

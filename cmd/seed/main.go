// README: Seeds demo users, a vehicle, and a published route; safe to rerun.
package main

import (
	"context"
	"errors"
	"log"

	"metrosync/internal/config"
	"metrosync/internal/infra"
	"metrosync/internal/logging"
	"metrosync/internal/maps"
	"metrosync/internal/modules/route"
	"metrosync/internal/modules/user"
	"metrosync/internal/types"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal(err)
	}
	logger := logging.NewLogger(cfg.LogLevel)
	ctx := context.Background()

	dbPool, err := infra.NewDB(ctx, cfg.DB.DSN)
	if err != nil {
		log.Fatal(err)
	}
	defer dbPool.Close()

	userStore := user.NewPGStore(dbPool)
	users := user.NewService(userStore, logger)
	routeStore := route.NewPGStore(dbPool)
	routes := route.NewService(routeStore, userStore, maps.SpeedEstimator{}, logger)

	riderID := ensureUser(ctx, users, userStore, user.RegisterCommand{
		ID:       "seed-rider",
		Username: "demo_rider",
		FullName: "Demo Rider",
		Email:    "rider@metrosync.local",
		Phone:    "+2348010000001",
		Roles:    []user.Role{user.RoleRider},
	})
	driverID := ensureUser(ctx, users, userStore, user.RegisterCommand{
		ID:       "seed-driver",
		Username: "demo_driver",
		FullName: "Demo Driver",
		Email:    "driver@metrosync.local",
		Phone:    "+2348010000002",
		Roles:    []user.Role{user.RoleDriver},
	})

	vehicles, err := users.Vehicles(ctx, driverID)
	if err != nil {
		log.Fatal(err)
	}
	if len(vehicles) == 0 {
		if _, err := users.AddVehicle(ctx, user.AddVehicleCommand{
			OwnerID:      driverID,
			Make:         "Toyota",
			Model:        "Sienna",
			Year:         2019,
			Color:        "silver",
			LicensePlate: "ABJ-553-KV",
			Capacity:     6,
			Type:         user.VehicleVan,
		}); err != nil {
			log.Fatal(err)
		}
		logger.Info("seeded vehicle", "driver", driverID)
	}

	existing, err := routes.ListByDriver(ctx, driverID)
	if err != nil {
		log.Fatal(err)
	}
	if len(existing) == 0 {
		r, err := routes.Create(ctx, route.CreateCommand{
			DriverID:    driverID,
			Name:        "Kubwa - Central Area Express",
			Description: "Morning commute from Kubwa through Dutse into the Central Business District.",
			Path: []types.Point{
				{Lat: 9.1580, Lng: 7.3327},
				{Lat: 9.1205, Lng: 7.3696},
				{Lat: 9.0810, Lng: 7.4110},
				{Lat: 9.0579, Lng: 7.4565},
				{Lat: 9.0480, Lng: 7.4868},
			},
		}, []route.StopCommand{
			{Name: "Kubwa Gate", Location: types.Point{Lat: 9.1560, Lng: 7.3350}},
			{Name: "Dutse Junction", Location: types.Point{Lat: 9.1198, Lng: 7.3710}},
			{Name: "Berger Roundabout", Location: types.Point{Lat: 9.0585, Lng: 7.4570}},
		})
		if err != nil {
			log.Fatal(err)
		}
		if _, err := routes.Publish(ctx, r.ID, driverID); err != nil {
			log.Fatal(err)
		}
		logger.Info("seeded route", "route", r.ID, "distance_km", r.DistanceKm)
	}

	logger.Info("seed complete", "rider", riderID, "driver", driverID)
}

func ensureUser(ctx context.Context, users *user.Service, store user.Store, cmd user.RegisterCommand) types.ID {
	if existing, err := store.GetByUsername(ctx, cmd.Username); err == nil {
		return existing.ID
	} else if !errors.Is(err, user.ErrNotFound) {
		log.Fatal(err)
	}
	id, err := users.Register(ctx, cmd)
	if err != nil {
		log.Fatal(err)
	}
	return id
}

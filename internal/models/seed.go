package models

import "time"

// DefaultPhases returns the seeded phase list: seven standard phases and the
// free-text one.
func DefaultPhases() []Phase {
	return []Phase{
		{ID: "1", Nom: "Fond feuille de la semelle", Type: PhaseStandard},
		{ID: "2", Nom: "BP de la semelle", Type: PhaseStandard},
		{ID: "3", Nom: "Coffrage de la semelle", Type: PhaseStandard},
		{ID: "4", Nom: "Coffrage les fûts", Type: PhaseStandard},
		{ID: "5", Nom: "Coffrage chevettre et dés d'appui", Type: PhaseStandard},
		{ID: "6", Nom: "Les appareils d'appui", Type: PhaseStandard},
		{ID: "7", Nom: "Coffrage poutre couronnement", Type: PhaseStandard},
		{ID: "8", Nom: OtherPhaseName, Type: PhaseOther},
	}
}

// DefaultStations returns the seeded instruments.
func DefaultStations() []Station {
	return []Station{
		{ID: "1", Nom: "TS 07", Modele: "Station Totale TS 07", Numero: "TS007", Statut: StationAvailable},
		{ID: "2", Nom: "TS 06 PLUS", Modele: "Station Totale TS 06 PLUS", Numero: "TS006P", Statut: StationAvailable},
		{ID: "3", Nom: "TS 11", Modele: "Station Totale TS 11", Numero: "TS011", Statut: StationAvailable},
	}
}

// DefaultUsers returns the seeded accounts, created at now.
func DefaultUsers(now time.Time) []User {
	return []User{
		{ID: "admin-1", Nom: "Akram", MotDePasse: "akram2025", Role: RoleAdmin, Actif: true, DateCreation: now},
		{ID: "topo-1", Nom: "Akram", MotDePasse: "akram123", Role: RoleTopographe, Actif: true, DateCreation: now},
		{ID: "topo-2", Nom: "Bachir", MotDePasse: "bachir123", Role: RoleTopographe, Actif: true, DateCreation: now},
		{ID: "topo-3", Nom: "Mohammed", MotDePasse: "mohammed123", Role: RoleTopographe, Actif: true, DateCreation: now},
		{ID: "topo-4", Nom: "Salah", MotDePasse: "salah123", Role: RoleTopographe, Actif: true, DateCreation: now},
	}
}

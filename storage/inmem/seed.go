package inmemdb

import (
	"github.com/pkg/errors"

	"github.com/trezcool/masomo-admin/core/user"
)

// Collections served by the development backend.
const (
	SchoolYears  = "annees-scolaires"
	Students     = "eleves"
	Offers       = "offres"
	Recruitments = "recrutements"
	Messages     = "messages"
)

// Seed fills db with a small school and one admin account.
func Seed(db *DB, adminPassword string) error {
	admin := user.User{Name: "Administrateur", Username: "admin", Email: "admin@masomo.cd", IsActive: true, Roles: []string{user.RoleAdminOwner}}
	if err := admin.SetPassword(adminPassword); err != nil {
		return errors.Wrap(err, "hashing admin password")
	}
	if _, err := NewUserRepository(db).CreateUser(admin); err != nil {
		return errors.Wrap(err, "creating admin")
	}

	years := db.Table(SchoolYears)
	years.Insert(Row{"libelle": "2023-2024", "dateDebut": "2023-09-04", "dateFin": "2024-07-02", "active": false, "dateCreation": "2023-06-15 10:00:00"})
	years.Insert(Row{"libelle": "2024-2025", "dateDebut": "2024-09-02", "dateFin": "2025-07-01", "active": true, "dateCreation": "2024-06-14 09:30:00"})

	students := db.Table(Students)
	for _, s := range []Row{
		{"matricule": "MS-0001", "nom": "Kabila", "postnom": "Lumbu", "prenom": "Amani", "sexe": "M", "dateNaissance": "2012-03-14", "email": "amani@example.com", "classe": map[string]interface{}{"id": 1, "nom": "6e A"}, "statut": "VALIDE", "dateInscription": "2024-08-20 08:15:00"},
		{"matricule": "MS-0002", "nom": "Mbuyi", "postnom": "Kanku", "prenom": "Grace", "sexe": "F", "dateNaissance": "2013-11-02", "email": "grace@example.com", "classe": nil, "statut": "INSCRIPTION", "dateInscription": "2024-08-28 14:40:00"},
		{"matricule": "MS-0003", "nom": "Tshibanda", "postnom": "", "prenom": "Joël", "sexe": "M", "dateNaissance": "2011-07-30", "classe": map[string]interface{}{"id": 2, "nom": "7e B"}, "statut": "VALIDE", "dateInscription": "2024-08-21 10:05:00"},
		{"matricule": "MS-0004", "nom": "Ilunga", "postnom": "Mwamba", "prenom": "Sarah", "sexe": "F", "dateNaissance": "2012-01-09", "statut": "INSCRIPTION", "dateInscription": "2024-09-01 09:00:00"},
		{"matricule": "MS-0005", "nom": "Mukendi", "postnom": "Ngoy", "prenom": "Daniel", "sexe": "M", "dateNaissance": "2013-05-21", "statut": "REJETE", "motifRejet": "Dossier incomplet", "dateInscription": "2024-08-30 16:20:00"},
	} {
		students.Insert(s)
	}

	offers := db.Table(Offers)
	offers.Insert(Row{"titre": "Enseignant de mathématiques", "description": "Cours de la 7e à la 8e année.", "type": "EMPLOI", "lieu": "Kinshasa", "salaire": "1200.50", "devise": "USD", "dateLimite": "2024-10-31", "statut": "OUVERTE", "datePublication": "2024-09-05 08:00:00"})
	offers.Insert(Row{"titre": "Stage secrétariat", "description": "Accueil et classement.", "type": "STAGE", "lieu": "Lubumbashi", "salaire": nil, "dateLimite": "2024-09-30", "statut": "FERMEE", "datePublication": "2024-08-01 08:00:00"})
	offers.Insert(Row{"titre": "Comptable", "description": "Suivi des frais scolaires.", "type": "EMPLOI", "lieu": "Kinshasa", "salaire": "950", "devise": "USD", "dateLimite": "2024-11-15", "statut": "OUVERTE", "datePublication": "2024-09-12 11:00:00"})

	recruitments := db.Table(Recruitments)
	recruitments.Insert(Row{"nom": "Ilunga", "prenom": "Sarah", "email": "sarah.ilunga@example.com", "telephone": "+243810000001", "poste": "Bibliothécaire", "statut": "EN_ATTENTE", "dateCandidature": "2024-09-10 09:30:00"})
	recruitments.Insert(Row{"nom": "Kasongo", "prenom": "Paul", "email": "paul.kasongo@example.com", "poste": "Enseignant de mathématiques", "offreId": 1, "statut": "EN_ATTENTE", "dateCandidature": "2024-09-14 15:10:00"})
	recruitments.Insert(Row{"nom": "Nsimba", "prenom": "Ruth", "email": "ruth.nsimba@example.com", "poste": "Comptable", "offreId": 3, "statut": "ACCEPTE", "dateCandidature": "2024-08-25 11:45:00"})

	messages := db.Table(Messages)
	messages.Insert(Row{"nom": "Parent Mukendi", "email": "mukendi@example.com", "sujet": "Frais scolaires", "contenu": "Bonjour, quelles sont les modalités de paiement ?", "lu": false, "dateEnvoi": "2024-09-02 08:00:00"})
	messages.Insert(Row{"nom": "", "email": "anonyme@example.com", "sujet": "Horaires", "contenu": "À quelle heure commencent les cours ?", "lu": true, "dateEnvoi": "2024-09-03 17:25:00"})
	return nil
}
